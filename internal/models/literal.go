package models

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Literal 用户输入的数值原文
// 写入前检查能否解析为十进制数，保存和序列化时保持原样（"0.50" 不会变成 "0.5"）
type Literal string

// ParseLiteral 校验并返回原文
func ParseLiteral(s string) (Literal, error) {
	if _, err := decimal.NewFromString(s); err != nil {
		return "", fmt.Errorf("not a decimal: %q", s)
	}
	return Literal(s), nil
}

// String 原文
func (l Literal) String() string {
	return string(l)
}

// Decimal 解析后的数值，用于范围比较
func (l Literal) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(string(l))
}

// MarshalJSON 以字符串形式发送，与表单提交一致
func (l Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(l))
}

// UnmarshalJSON 接受字符串或数字，数字保留原文
func (l *Literal) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Literal(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("literal: %w", err)
	}
	*l = Literal(n.String())
	return nil
}
