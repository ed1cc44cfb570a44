package dataset

import (
	"math/rand/v2"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrBucketConfig 分桶配置无效
var ErrBucketConfig = errors.New("invalid bucket config")

// BucketConfig 按长度分桶: 第 i 个桶覆盖 [MaxLengths[i-1], MaxLengths[i]), 批大小 BatchSizes[i]
type BucketConfig struct {
	MaxLengths []int
	BatchSizes []int
}

// DefaultBucketConfig 默认分桶
func DefaultBucketConfig() BucketConfig {
	return BucketConfig{
		MaxLengths: []int{1000, 1300, 1850, 30000},
		BatchSizes: []int{10, 8, 6, 4},
	}
}

// Validate 检查配置
func (c BucketConfig) Validate() error {
	if len(c.MaxLengths) == 0 || len(c.MaxLengths) != len(c.BatchSizes) {
		return errors.Wrapf(ErrBucketConfig, "%d max lengths, %d batch sizes", len(c.MaxLengths), len(c.BatchSizes))
	}
	prev := 0
	for i, l := range c.MaxLengths {
		if l <= prev {
			return errors.Wrapf(ErrBucketConfig, "max length %d at %d is not increasing", l, i)
		}
		prev = l
	}
	for i, b := range c.BatchSizes {
		if b <= 0 {
			return errors.Wrapf(ErrBucketConfig, "batch size %d at %d", b, i)
		}
	}
	return nil
}

// bucketOf 返回长度所在的桶, 超过最后上界时归入最后一个桶
func (c BucketConfig) bucketOf(length int) (int, bool) {
	for i, l := range c.MaxLengths {
		if length < l {
			return i, true
		}
	}
	return len(c.MaxLengths) - 1, false
}

// DynBatchOption 动态批次可选参数
type DynBatchOption func(*DynBatchDataset)

// WithRand 指定随机源, 便于复现
func WithRand(r *rand.Rand) DynBatchOption {
	return func(d *DynBatchDataset) { d.rng = r }
}

// WithBatchLogger 指定日志输出
func WithBatchLogger(l zerolog.Logger) DynBatchOption {
	return func(d *DynBatchDataset) { d.logger = l }
}

// DynBatchDataset 把 FastPitchDataset 按长度分桶, 以整批为单位访问
type DynBatchDataset struct {
	ds     *FastPitchDataset
	cfg    BucketConfig
	rng    *rand.Rand
	logger zerolog.Logger

	mu      sync.RWMutex
	batches [][]int
}

// NewDynBatchDataset 校验配置并完成第一次洗牌
func NewDynBatchDataset(ds *FastPitchDataset, cfg BucketConfig, opts ...DynBatchOption) (*DynBatchDataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &DynBatchDataset{
		ds:     ds,
		cfg:    cfg,
		logger: ds.logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		d.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	d.Shuffle()
	return d, nil
}

// Shuffle 桶内随机打乱后切成批, 批次顺序为桶顺序再块顺序
func (d *DynBatchDataset) Shuffle() {
	buckets := make([][]int, len(d.cfg.MaxLengths))
	for i, s := range d.ds.Samples() {
		n := len(s.Pitch)
		b, ok := d.cfg.bucketOf(n)
		if !ok {
			d.logger.Warn().Str("path", s.Path).Int("length", n).
				Int("max_length", d.cfg.MaxLengths[b]).Msg("length exceeds last bucket, clamped")
		}
		buckets[b] = append(buckets[b], i)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var batches [][]int
	for b, ids := range buckets {
		d.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		bs := d.cfg.BatchSizes[b]
		for start := 0; start < len(ids); start += bs {
			end := min(start+bs, len(ids))
			batches = append(batches, ids[start:end:end])
		}
	}
	d.batches = batches
}

// Len 批次数
func (d *DynBatchDataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.batches)
}

// Batches 返回当前批次划分的拷贝
func (d *DynBatchDataset) Batches() [][]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([][]int, len(d.batches))
	for i, b := range d.batches {
		out[i] = append([]int(nil), b...)
	}
	return out
}

// Get 加载第 i 批的全部样本
func (d *DynBatchDataset) Get(i int) ([]FastPitchItem, error) {
	d.mu.RLock()
	if i < 0 || i >= len(d.batches) {
		d.mu.RUnlock()
		return nil, errors.Wrapf(ErrIndexOutOfRange, "batch %d", i)
	}
	ids := append([]int(nil), d.batches[i]...)
	d.mu.RUnlock()

	items := make([]FastPitchItem, 0, len(ids))
	for _, idx := range ids {
		item, err := d.ds.Get(idx)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
