package notification

import (
	"context"
	"sync"

	"github.com/santrihub/sppbilling/pkg/apperr"
	"github.com/santrihub/sppbilling/pkg/logctx"
)

// BulkDetail is the per-recipient outcome of a bulk send.
type BulkDetail struct {
	RecipientID    string `json:"recipient_id"`
	NotificationID string `json:"notification_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

type BulkResult struct {
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Details    []*BulkDetail `json:"details"`
}

// SendBulk fans the same message out to many recipients. Each recipient is an
// independent send: one failure is recorded in its detail entry and never
// aborts the batch. Fan-out is bounded by trigger.bulk_concurrency.
func (s *Service) SendBulk(ctx context.Context, req *SendRequest, recipientIDs []string) (*BulkResult, error) {
	if len(recipientIDs) == 0 {
		return nil, apperr.Validationf("recipient list is empty")
	}
	base := *req
	base.RecipientID = "placeholder"
	if err := base.validate(); err != nil {
		return nil, err
	}

	workers := s.cfg.Trigger.BulkConcurrency
	if workers <= 0 {
		workers = 8
	}

	details := make([]*BulkDetail, len(recipientIDs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, rid := range recipientIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rid string) {
			defer wg.Done()
			defer func() { <-sem }()

			r := *req
			r.RecipientID = rid
			n, err := s.Create(ctx, &r)
			if err != nil {
				details[i] = &BulkDetail{RecipientID: rid, Error: err.Error()}
				return
			}
			details[i] = &BulkDetail{RecipientID: rid, NotificationID: n.ID}
		}(i, rid)
	}
	wg.Wait()

	res := &BulkResult{Details: details}
	for _, d := range details {
		if d.Error != "" {
			res.Failed++
		} else {
			res.Successful++
		}
	}
	logctx.FromCtx(ctx, s.log).Infow("bulk_send_done",
		"recipients", len(recipientIDs), "successful", res.Successful, "failed", res.Failed)
	return res, nil
}
