package sizing

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// 用户可见提示
const (
	MsgEmptyEquipment    = "Add at least one equipment before calculating."
	MsgServerUnreachable = "Could not connect to the calculation server. Check that the sizing service is running."
	MsgMalformedResponse = "The calculation server returned an incomplete result."
)

// ValidationError 本地校验失败，请求不会发出
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// Message 用户提示
func (e *ValidationError) Message() string {
	return MsgEmptyEquipment
}

// TransportError 网络失败、非 200 状态或响应体无法解析
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sizing %s: status=%d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sizing %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Message 用户提示
func (e *TransportError) Message() string {
	return MsgServerUnreachable
}

// MalformedResponseError 200 响应缺少约定字段
type MalformedResponseError struct {
	Fields []string
}

func (e *MalformedResponseError) Error() string {
	return "malformed sizing response: missing " + strings.Join(e.Fields, ", ")
}

// Message 用户提示
func (e *MalformedResponseError) Message() string {
	return MsgMalformedResponse
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 错误信息中使用 JSON 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate 检查响应是否满足约定
// intellectus_warnings 缺失视为没有提示
func (r *Response) Validate() error {
	if r == nil {
		return &MalformedResponseError{Fields: []string{"body"}}
	}

	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate sizing response: %w", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Response.main_results.potencia_pv_kWp -> main_results.potencia_pv_kWp
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		fields = append(fields, ns)
	}
	return &MalformedResponseError{Fields: fields}
}
