package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/belindacoding/liminal-hotel/internal/engine"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
	"github.com/belindacoding/liminal-hotel/internal/llm"
	"github.com/belindacoding/liminal-hotel/internal/visitor"
)

var (
	visitName     string
	visitWallet   string
	visitTx       string
	visitSteps    int
	visitInterval time.Duration
	visitCheckout bool
	visitModel    bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "visit",
		Short: "Enter the hotel as a visiting guest and wander it",
		Run:   runVisit,
	}
	cmd.Flags().StringVar(&visitName, "name", "", "Guest name (generated when empty)")
	cmd.Flags().StringVar(&visitWallet, "wallet", "", "Paying wallet address (required)")
	cmd.Flags().StringVar(&visitTx, "tx", "", "Entry payment transaction hash (a random one in dev mode)")
	cmd.Flags().IntVar(&visitSteps, "steps", 10, "Number of steps to take (0 = until interrupted)")
	cmd.Flags().DurationVar(&visitInterval, "interval", 30*time.Second, "Pause between steps")
	cmd.Flags().BoolVar(&visitCheckout, "checkout", true, "Check out after the last step")
	cmd.Flags().BoolVar(&visitModel, "think", false, "Let the model choose each step (needs ANTHROPIC_API_KEY)")

	RootCmd.AddCommand(cmd)
}

func runVisit(cmd *cobra.Command, args []string) {
	if visitWallet == "" {
		exitErr("visit", fmt.Errorf("--wallet is required"))
	}
	tx := visitTx
	if tx == "" {
		tx = "0xdev" + uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	url := baseURL()
	if err := visitor.WaitForAPI(ctx, url, 5*time.Minute); err != nil {
		exitErr("visit", err)
	}

	var strategy visitor.Strategy = visitor.NewWanderer(entropy.New(), engine.DefaultConfig().MaxMemoriesPerGuest)
	if visitModel {
		strategy = visitor.NewDeliberator(llm.NewClient(loadConfig().AnthropicKey), strategy)
	}

	v := &visitor.Visitor{
		Observer: visitor.NewObserver(url),
		Actor:    visitor.NewActor(url),
		Strategy: strategy,
		Entry:    engine.EnterRequest{Name: visitName, Wallet: visitWallet, TxHash: tx},
		Interval: visitInterval,
		Steps:    visitSteps,
		Checkout: visitCheckout,
	}
	sum, err := v.Run(ctx)
	if err != nil {
		exitErr("visit", err)
	}
	fmt.Printf("%s took %d steps, %d accepted.\n", sum.GuestID, sum.Steps, sum.Accepted)
	if sum.Checkout != nil {
		fmt.Printf("\n%s\n\n%s\n", sum.Checkout.Narrative, sum.Checkout.Farewell)
	}
}
