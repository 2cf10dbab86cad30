package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
)

// StringList 以 JSON 数组存储的字符串集合
type StringList []string

// 实现 sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
}

// 实现 driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Contains 判断是否包含
func (l StringList) Contains(s string) bool {
	return lo.Contains(l, s)
}

// Subtask 子任务, 有序存储在任务的 subtasks 字段中
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}
