package agents

import (
	"time"
)

// Trigger kinds.
const (
	TriggerWebhook  = "webhook"
	TriggerPeriodic = "periodic"
)

// TriggerConfig describes how tasks reach an agent. Webhook agents receive
// payloads over the API; periodic agents synthesize one task per tick from
// the configured payload template.
type TriggerConfig struct {
	Type     string                 `json:"type"`
	Interval time.Duration          `json:"interval,omitempty"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	Profile  string                 `json:"profile,omitempty"`
}

// periodic enqueues one synthesized task per tick until the agent stops.
// Gate rejections are logged by Submit; a paused agent rejects the tick
// with ErrAgentNotReady and the fire is skipped.
func (a *Agent) periodic() {
	ticker := time.NewTicker(a.trigger.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopTicker:
			return
		case <-ticker.C:
			if _, _, err := a.Submit(a.synthesizePayload()); err != nil {
				a.logger.Printf("⚠️ Periodic trigger skipped for %s: %v", a.name, err)
			}
		}
	}
}

func (a *Agent) synthesizePayload() map[string]interface{} {
	payload := make(map[string]interface{}, len(a.trigger.Payload)+2)
	for k, v := range a.trigger.Payload {
		payload[k] = v
	}
	payload["trigger"] = TriggerPeriodic
	payload["triggered_at"] = time.Now().UTC().Format(time.RFC3339)
	return payload
}
