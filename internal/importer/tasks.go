package importer

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLeadImport = "leads.import"

type LeadImportPayload struct {
	JobID string `json:"jobId"`
}

func NewLeadImportTask(payload LeadImportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadImport, data), nil
}

func ParseLeadImportPayload(task *asynq.Task) (LeadImportPayload, error) {
	var payload LeadImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadImportPayload{}, err
	}
	return payload, nil
}
