package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeContractShared is the task type for share notifications.
	TaskTypeContractShared = "contract:shared"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ContractSharedPayload carries the facts of a freshly granted share.
type ContractSharedPayload struct {
	ContractID int64 `json:"contract_id"`
	UserID     int64 `json:"user_id"`
	GrantedBy  int64 `json:"granted_by"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewContractSharedTask constructs an Asynq task for a share notification.
func NewContractSharedTask(payload ContractSharedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeContractShared, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		// Placeholder: SMTP delivery lands with the Mailpit integration.
		logger.Info("send email",
			slog.String("to", payload.To),
			slog.String("subject", payload.Subject))
		return nil
	}
}

// HandleContractSharedTask processes TaskTypeContractShared tasks.
func HandleContractSharedTask(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ContractSharedPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Info("contract shared notification",
			slog.Int64("contract_id", payload.ContractID),
			slog.Int64("user_id", payload.UserID),
			slog.Int64("granted_by", payload.GrantedBy))
		return nil
	}
}
