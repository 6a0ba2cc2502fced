package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const fast2SMSEndpoint = "https://www.fast2sms.com/dev/bulkV2"

// SMSResult is the delivery outcome reported by the gateway.
type SMSResult struct {
	Success bool
	Message string
}

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	Send(to, message string) SMSResult
}

// Fast2SMSService sends SMS through the Fast2SMS DLT route.
type Fast2SMSService struct {
	apiKey     string
	senderID   string
	templateID string
	client     *http.Client
}

// NewFast2SMSService creates a new Fast2SMSService.
func NewFast2SMSService(apiKey, senderID, templateID string) *Fast2SMSService {
	return &Fast2SMSService{
		apiKey:     apiKey,
		senderID:   senderID,
		templateID: templateID,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

type fast2SMSRequest struct {
	Route           string `json:"route"`
	SenderID        string `json:"sender_id"`
	Message         string `json:"message"`
	VariablesValues string `json:"variables_values"`
	Flash           int    `json:"flash"`
	Numbers         string `json:"numbers"`
}

// Send delivers a message. The DLT route only transports template
// variables, so the OTP digits are extracted from the message text.
func (s *Fast2SMSService) Send(to, message string) SMSResult {
	if s.apiKey == "" {
		log.Println("[SMS] Fast2SMS API key not configured")
		return SMSResult{Success: false, Message: "SMS gateway not configured"}
	}

	payload := fast2SMSRequest{
		Route:           "dlt",
		SenderID:        s.senderID,
		Message:         s.templateID,
		VariablesValues: extractDigits(message),
		Flash:           0,
		Numbers:         to,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return SMSResult{Success: false, Message: "Failed to send SMS"}
	}

	req, err := http.NewRequest(http.MethodPost, fast2SMSEndpoint, bytes.NewReader(body))
	if err != nil {
		return SMSResult{Success: false, Message: "Failed to send SMS"}
	}
	req.Header.Set("authorization", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[SMS] Failed to send message: %v", err)
		return SMSResult{Success: false, Message: "Failed to send SMS"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[SMS] Unexpected status: %d", resp.StatusCode)
		return SMSResult{Success: false, Message: "Failed to send SMS"}
	}

	return SMSResult{Success: true, Message: "SMS sent successfully"}
}

// OTPMessage formats the verification text sent for an issued code.
func OTPMessage(code, purpose string, ttl time.Duration) string {
	labels := map[string]string{
		"register": "registration",
		"login":    "login",
		"reset":    "password reset",
	}
	label, ok := labels[purpose]
	if !ok {
		label = purpose
	}
	return fmt.Sprintf("Your OTP for %s is %s. Valid for %d minute(s).", label, code, int(ttl.Minutes()))
}

func extractDigits(message string) string {
	run := ""
	for _, r := range message {
		if r >= '0' && r <= '9' {
			run += string(r)
			if len(run) == 6 {
				return run
			}
		} else if len(run) >= 4 {
			return run
		} else {
			run = ""
		}
	}
	if len(run) >= 4 {
		return run
	}
	return ""
}
