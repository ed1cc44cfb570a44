package audio

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListWavFiles 递归收集目录下所有 .wav 文件, 跟随符号链接目录, 结果按路径排序
func ListWavFiles(root string) ([]string, error) {
	var files []string
	visited := make(map[string]bool)

	var walk func(dir string) error
	walk = func(dir string) error {
		resolved, err := filepath.EvalSymlinks(dir)
		if err != nil {
			return err
		}
		if visited[resolved] {
			return nil
		}
		visited[resolved] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			p := filepath.Join(dir, e.Name())
			info, err := os.Stat(p)
			if err != nil {
				// 悬空链接
				continue
			}
			if info.IsDir() {
				if err := walk(p); err != nil {
					return err
				}
				continue
			}
			if strings.HasSuffix(e.Name(), ".wav") {
				files = append(files, p)
			}
		}
		return nil
	}

	if err := walk(root); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
