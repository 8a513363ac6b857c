package eventconsumers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
	pubsub "github.com/jiaming2012/options-escrow/src/eventpubsub"
)

// SlackNotifierClient mirrors settlement outcomes and operational errors
// to a slack webhook. Delivery is best effort: a failed post is logged
// and dropped.
type SlackNotifierClient struct {
	wg         *sync.WaitGroup
	webhookURL string
}

func NewSlackNotifierClient(wg *sync.WaitGroup, webhookURL string) *SlackNotifierClient {
	return &SlackNotifierClient{
		wg:         wg,
		webhookURL: webhookURL,
	}
}

func (c *SlackNotifierClient) escrowSettledHandler(ev *eventmodels.EscrowSettledEvent) {
	log.Debugf("SlackNotifierClient.escrowSettledHandler <- %v", ev.EscrowID)

	var msg string
	switch ev.Outcome {
	case eventmodels.SettlementOutcomeITM:
		verb := "settled"
		if ev.EarlyExercise {
			verb = "exercised early"
		}

		msg = fmt.Sprintf("escrow %s %s ITM @ spot %d: payoff %d to %s, fee %d to %s, residual %d", ev.EscrowID, verb, ev.SpotPrice, ev.PayoffNet, ev.PayoffRecipient, ev.FeeAmount, ev.FeeCollector, ev.ResidualNet)
	case eventmodels.SettlementOutcomeOTM:
		msg = fmt.Sprintf("escrow %s settled OTM @ spot %d: collateral %d returned to the writer", ev.EscrowID, ev.SpotPrice, ev.ResidualNet)
	default:
		msg = fmt.Sprintf("escrow %s settled with outcome %s", ev.EscrowID, ev.Outcome)
	}

	if _, err := sendResponse(msg, c.webhookURL, false); err != nil {
		log.Error(err)
	}
}

func (c *SlackNotifierClient) disbursementPendingHandler(escrowID uuid.UUID) {
	log.Debugf("SlackNotifierClient.disbursementPendingHandler <- %v", escrowID)

	msg := fmt.Sprintf(":warning: escrow %s settled but its disbursement is incomplete, reconciliation in progress", escrowID)

	if _, err := sendResponse(msg, c.webhookURL, false); err != nil {
		log.Error(err)
	}
}

func (c *SlackNotifierClient) sendError(err error) {
	log.Debugf("SlackNotifierClient.sendError <- %v", err)

	if _, sendErr := sendResponse(err.Error(), c.webhookURL, false); sendErr != nil {
		log.Error(sendErr)
	}
}

func (c *SlackNotifierClient) Start(ctx context.Context) {
	c.wg.Add(1)

	pubsub.Subscribe("SlackNotifierClient", eventmodels.EscrowSettledEventName, c.escrowSettledHandler)
	pubsub.Subscribe("SlackNotifierClient", eventmodels.DisbursementPendingEventName, c.disbursementPendingHandler)
	pubsub.SubscribeError("SlackNotifierClient", c.sendError)

	go func() {
		defer c.wg.Done()
		<-ctx.Done()
		log.Info("stopping SlackNotifierClient consumer")
	}()
}

func sendResponse(msg string, url string, isEphemeral bool) ([]byte, error) {
	body := make(map[string]interface{})
	body["text"] = msg

	if isEphemeral {
		body["response_type"] = "ephemeral"
	} else {
		body["response_type"] = "in_channel"
	}

	return postJSON(url, body)
}

func postJSON(url string, body map[string]interface{}) ([]byte, error) {
	client := http.Client{
		Timeout: 60 * time.Second,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("PostJSON (Marshal): %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("PostJSON (NewRequest): %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	res, getErr := client.Do(req)
	if getErr != nil {
		return nil, fmt.Errorf("PostJSON (Do): %w", getErr)
	}

	if res.Body != nil {
		defer res.Body.Close()
	}

	bodyBytes, readErr := io.ReadAll(res.Body)
	if readErr != nil {
		return nil, fmt.Errorf("PostJSON (ReadAll): %w", readErr)
	}

	if res.StatusCode >= 400 {
		var errDTO eventmodels.ErrorDTO
		if jsonErr := json.Unmarshal(bodyBytes, &errDTO); jsonErr != nil {
			return nil, fmt.Errorf("PostJSON (jsonErr): %w. payload: %s", jsonErr, string(bodyBytes))
		}

		return nil, fmt.Errorf("errDTO.Msg: %v", errDTO.Msg)
	}

	return bodyBytes, nil
}
