package rules

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/request.schema.json
var requestSchemaJSON string

var requestSchema = jsonschema.MustCompileString("request.schema.json", requestSchemaJSON)

// DirectTradeReason is returned for agent-initiated trade requests.
const DirectTradeReason = "Direct trades are not supported. Guests trade through conversation."

type envelope struct {
	AgentID string          `json:"agent_id"`
	Action  string          `json:"action"`
	Params  json.RawMessage `json:"params"`
}

// DecodeRequest parses an action request from JSON. The action tag and the
// params shape must agree; anything else is rejected with a ValidationError.
func DecodeRequest(body []byte) (Request, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return Request{}, reject("Malformed request: %v", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Action == "trade" {
		return Request{}, reject(DirectTradeReason)
	}

	if err := requestSchema.Validate(raw); err != nil {
		return Request{}, reject("Malformed request: %s", schemaReason(err))
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return Request{}, reject("Malformed request: %v", err)
	}

	req := Request{GuestID: env.AgentID, Action: ActionType(env.Action)}
	switch req.Action {
	case ActionMove:
		var p MoveParams
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return Request{}, reject("Malformed move params: %v", err)
		}
		req.Move = &p
	case ActionClaim:
		var p ClaimParams
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return Request{}, reject("Malformed claim params: %v", err)
		}
		req.Claim = &p
	}
	return req, nil
}

// schemaReason flattens a schema failure to its most specific message.
func schemaReason(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	if ve.InstanceLocation == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", ve.InstanceLocation, ve.Message)
}
