package feedback

import (
	"context"
	"errors"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/plateful/recommender/logging"
)

// KafkaConfig Kafka 采集器配置
type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`

	// 批量大小与刷新间隔
	BatchSize     int           `koanf:"batch_size" validate:"gte=0"`
	FlushInterval time.Duration `koanf:"flush_interval"`

	ClientID string `koanf:"client_id"`
	// RequiredAcks: 1=leader（默认）, -1=all；0 视为未设置
	RequiredAcks int16 `koanf:"required_acks" validate:"oneof=-1 0 1"`
	// Compression: gzip / snappy / lz4 / zstd，为空不压缩
	Compression string `koanf:"compression" validate:"omitempty,oneof=gzip snappy lz4 zstd"`
	MaxRetries  int    `koanf:"max_retries" validate:"gte=0"`
}

// producer 是 KafkaCollector 用到的 kgo.Client 子集。
type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// KafkaCollector 批量把事件写入 Kafka，key 为 userID 以保证同一用户的事件有序。
// 所有发送都在刷新协程（或 Close）中进行，Close 返回前缓冲内的事件都已交给客户端。
type KafkaCollector struct {
	client        producer
	topic         string
	batchSize     int
	flushInterval time.Duration

	mu        sync.Mutex
	buffer    []Event
	lastFlush time.Time
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup
	stopCh    chan struct{}
	flushCh   chan struct{}
}

func (cfg KafkaConfig) withDefaults() KafkaConfig {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "plateful-feedback"
	}
	if cfg.RequiredAcks == 0 {
		cfg.RequiredAcks = 1
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return cfg
}

// clientOpts 把配置转换为 franz-go 客户端选项。
func (cfg KafkaConfig) clientOpts() []kgo.Opt {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RecordRetries(cfg.MaxRetries),
	}

	switch cfg.RequiredAcks {
	case -1:
		opts = append(opts, kgo.RequiredAcks(kgo.AllISRAcks()))
	default:
		opts = append(opts, kgo.RequiredAcks(kgo.LeaderAck()), kgo.DisableIdempotentWrite())
	}

	switch cfg.Compression {
	case "gzip":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.GzipCompression()))
	case "snappy":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.SnappyCompression()))
	case "lz4":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.Lz4Compression()))
	case "zstd":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.ZstdCompression()))
	}
	return opts
}

// NewKafkaCollector 创建 Kafka 采集器并启动后台刷新协程。
func NewKafkaCollector(cfg KafkaConfig) (*KafkaCollector, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("feedback: kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("feedback: kafka topic is required")
	}
	cfg = cfg.withDefaults()

	client, err := kgo.NewClient(cfg.clientOpts()...)
	if err != nil {
		return nil, err
	}
	return newKafkaCollector(client, cfg), nil
}

func newKafkaCollector(client producer, cfg KafkaConfig) *KafkaCollector {
	c := &KafkaCollector{
		client:        client,
		topic:         cfg.Topic,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		buffer:        make([]Event, 0, cfg.BatchSize),
		lastFlush:     time.Now(),
		stopCh:        make(chan struct{}),
		flushCh:       make(chan struct{}, 1),
	}
	c.wg.Add(1)
	go c.flushLoop()
	return c
}

// Record 把事件放入缓冲；达到批量大小时通知刷新协程发送，不阻塞调用方。
func (c *KafkaCollector) Record(_ context.Context, events ...Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.buffer = append(c.buffer, events...)
	if len(c.buffer) >= c.batchSize {
		select {
		case c.flushCh <- struct{}{}:
		default:
		}
	}
	return nil
}

func (c *KafkaCollector) flushLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			due := len(c.buffer) > 0 && time.Since(c.lastFlush) >= c.flushInterval
			c.mu.Unlock()
			if due {
				c.flush()
			}
		case <-c.flushCh:
			c.flush()
		case <-c.stopCh:
			return
		}
	}
}

func (c *KafkaCollector) flush() {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	events := make([]Event, len(c.buffer))
	copy(events, c.buffer)
	c.buffer = c.buffer[:0]
	c.lastFlush = time.Now()
	c.mu.Unlock()

	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			logging.Warn().Err(err).Str("type", string(ev.Type)).Msg("encode feedback event failed")
			continue
		}
		record := &kgo.Record{Topic: c.topic, Key: []byte(ev.UserID), Value: data}
		c.client.Produce(context.Background(), record, func(r *kgo.Record, err error) {
			if err != nil {
				logging.Warn().Err(err).Str("topic", r.Topic).Msg("produce feedback event failed")
			}
		})
	}
}

// Close 停止刷新，发送剩余事件并等待在途请求完成。
func (c *KafkaCollector) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.stopCh)
		c.wg.Wait()
		c.flush()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = c.client.Flush(ctx)
		c.client.Close()
	})
	return err
}
