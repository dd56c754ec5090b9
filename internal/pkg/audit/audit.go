package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 审计事件类型
const (
	EventBalanceCheckRequested = "balance_check_requested"
	EventDebitProcessed        = "debit_processed"
	EventCreditProcessed       = "credit_processed"
	EventPlanApplied           = "plan_applied"
	EventInsufficientFunds     = "insufficient_funds"
)

type Event struct {
	EventType     string  `json:"event_type"`
	Sub           string  `json:"sub"`
	Amount        float64 `json:"amount,omitempty"`
	BalanceBefore float64 `json:"balance_before,omitempty"`
	BalanceAfter  float64 `json:"balance_after,omitempty"`
	TxID          string  `json:"tx_id,omitempty"`
	Ref           string  `json:"ref,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	PlanCode      string  `json:"plan_code,omitempty"`
	ErrorDetails  string  `json:"error_details,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// Queue 基于 Redis list 的审计事件队列，下游服务消费
type Queue struct {
	client    *redis.Client
	queueName string
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// Push 将审计事件入队
func (q *Queue) Push(ctx context.Context, evt *Event) error {
	if evt.CreatedAt == "" {
		evt.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Pop 从队列获取事件（阻塞）
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*Event, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 超时，无事件
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var evt Event
	if err := json.Unmarshal([]byte(result[1]), &evt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &evt, nil
}

// Length 获取队列长度
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
