package dataset

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/up-zero/gotool/fileutil"
)

// DefaultPitchDictPath 默认基频字典路径
const DefaultPitchDictPath = "./data/pitch_dict.json"

// PitchTable 音频文件名 (basename) 到逐帧基频曲线的只读映射
type PitchTable struct {
	m map[string][]float64
}

// NewPitchTable 拷贝输入构建只读表
func NewPitchTable(m map[string][]float64) PitchTable {
	cp := make(map[string][]float64, len(m))
	for k, v := range m {
		cp[k] = append([]float64(nil), v...)
	}
	return PitchTable{m: cp}
}

// LoadPitchTable 读取 JSON 格式的基频字典: {"clip.wav": [f0, ...]}
func LoadPitchTable(path string) (PitchTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PitchTable{}, errors.Wrap(err, "read pitch dict")
	}
	var m map[string][]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return PitchTable{}, errors.Wrap(err, "decode pitch dict")
	}
	return PitchTable{m: m}, nil
}

// Save 写出 JSON 格式的基频字典
func (pt PitchTable) Save(path string) error {
	data, err := json.Marshal(pt.m)
	if err != nil {
		return errors.Wrap(err, "encode pitch dict")
	}
	return fileutil.FileSave(path, data)
}

// Lookup 返回基频曲线, 调用方不得修改返回的切片
func (pt PitchTable) Lookup(name string) ([]float64, bool) {
	v, ok := pt.m[name]
	return v, ok
}

// Len 条目数
func (pt PitchTable) Len() int { return len(pt.m) }

// Names 排序后的文件名
func (pt PitchTable) Names() []string {
	names := make([]string, 0, len(pt.m))
	for k := range pt.m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
