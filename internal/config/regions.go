package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Region 可选地区（计算服务按名称查找日照小时数）
type Region struct {
	ID    string `toml:"id" json:"id"`
	Label string `toml:"label" json:"label"`
}

type regionsFile struct {
	Regions []Region `toml:"regions"`
}

// DefaultRegions 计算服务内置的地区
var DefaultRegions = []Region{
	{ID: "fortaleza", Label: "Fortaleza"},
	{ID: "sao paulo", Label: "São Paulo"},
	{ID: "rio de janeiro", Label: "Rio de Janeiro"},
	{ID: "curitiba", Label: "Curitiba"},
}

// LoadRegions 读取地区列表，文件不存在时使用默认值
func LoadRegions(path string) ([]Region, error) {
	if path == "" {
		return DefaultRegions, nil
	}

	var f regionsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultRegions, nil
		}
		return nil, fmt.Errorf("decode regions file: %w", err)
	}

	if len(f.Regions) == 0 {
		return DefaultRegions, nil
	}

	for i, r := range f.Regions {
		if r.ID == "" {
			return nil, fmt.Errorf("region #%d has no id", i+1)
		}
		if r.Label == "" {
			f.Regions[i].Label = r.ID
		}
	}

	return f.Regions, nil
}
