package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func init() {
	openCmd := &cobra.Command{
		Use:   "open",
		Short: "Reset the hotel, seed the opening guests and open the doors",
		Run: func(cmd *cobra.Command, args []string) {
			runAdmin("/world/hotel/open")
		},
	}
	closeCmd := &cobra.Command{
		Use:   "close",
		Short: "Close the hotel and freeze the results",
		Run: func(cmd *cobra.Command, args []string) {
			runAdmin("/world/hotel/close")
		},
	}

	RootCmd.AddCommand(openCmd, closeCmd)
}

func runAdmin(path string) {
	key := loadConfig().AdminKey
	if key == "" {
		exitErr("admin", fmt.Errorf("HOTEL_ADMIN_KEY is required"))
	}
	out, err := request(http.MethodPost, path, key, nil)
	if err != nil {
		exitErr("admin", err)
	}
	fmt.Println(string(out))
}
