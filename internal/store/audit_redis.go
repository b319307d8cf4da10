package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Entry is the outcome of one reconstruct call. Image data is never stored.
type Entry struct {
	Outcome    string     `json:"outcome"`
	StatusCode int        `json:"status_code"`
	Message    string     `json:"message,omitempty"`
	PageRange  string     `json:"page_range"`
	MIMEType   string     `json:"mime_type"`
	Model      string     `json:"model,omitempty"`
	Route      string     `json:"route,omitempty"`
	BaseURL    string     `json:"base_url,omitempty"`
	OutputSize int        `json:"output_size"`
	Start      *time.Time `json:"start_time,omitempty"`
	End        *time.Time `json:"end_time,omitempty"`
}

type RedisAudit struct {
	client *redis.Client
	keyNS  string
	ttl    time.Duration
}

func NewRedisAudit(redisURL string, ttl time.Duration) (*RedisAudit, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return newRedisAudit(c, ttl), nil
}

func newRedisAudit(c *redis.Client, ttl time.Duration) *RedisAudit {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisAudit{client: c, keyNS: "reconstruct", ttl: ttl}
}

func (s *RedisAudit) key(requestID string) string { return fmt.Sprintf("%s:%s:audit", s.keyNS, requestID) }

// Record stores e under requestID and refreshes its expiry.
func (s *RedisAudit) Record(ctx context.Context, requestID string, e Entry) error {
	k := s.key(requestID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, encodeEntry(e))
		p.Expire(ctx, k, s.ttl)
		return nil
	})
	return err
}

func (s *RedisAudit) Get(ctx context.Context, requestID string) (Entry, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(requestID)).Result()
	if err != nil {
		return Entry{}, false, err
	}
	if len(res) == 0 {
		return Entry{}, false, nil
	}
	return decodeEntry(res), true, nil
}

func (s *RedisAudit) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisAudit) Close() error { return s.client.Close() }

func encodeEntry(e Entry) map[string]interface{} {
	m := map[string]interface{}{
		"outcome":     e.Outcome,
		"status_code": e.StatusCode,
		"message":     e.Message,
		"page_range":  e.PageRange,
		"mime_type":   e.MIMEType,
		"model":       e.Model,
		"route":       e.Route,
		"base_url":    e.BaseURL,
		"output_size": e.OutputSize,
	}
	if e.Start != nil {
		m["start"] = e.Start.Format(time.RFC3339Nano)
	}
	if e.End != nil {
		m["end"] = e.End.Format(time.RFC3339Nano)
	}
	return m
}

func decodeEntry(res map[string]string) Entry {
	e := Entry{
		Outcome:   res["outcome"],
		Message:   res["message"],
		PageRange: res["page_range"],
		MIMEType:  res["mime_type"],
		Model:     res["model"],
		Route:     res["route"],
		BaseURL:   res["base_url"],
	}
	// ignore parse errors; default 0
	e.StatusCode, _ = strconv.Atoi(res["status_code"])
	e.OutputSize, _ = strconv.Atoi(res["output_size"])
	if v := res["start"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			e.Start = &t
		}
	}
	if v := res["end"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			e.End = &t
		}
	}
	return e
}
