package module

import (
	"fmt"

	"github.com/sansible/sansible/pkg/connection"
)

// AssertModule assert 模块实现
// assert 模块的 "that" 条件已由 runner 预先求值（见
// preprocessModuleArgs），因为条件表达式的渲染依赖模板引擎，模块本身
// 不持有模板上下文。
type AssertModule struct{}

// Execute 执行 assert 模块
func (m *AssertModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	result := &Result{}

	thatResults, ok := args["_that_results"].([]bool)
	if !ok {
		result.Failed = true
		result.Msg = "internal error: _that_results not provided by runner"
		return result, nil
	}
	thatExprs, _ := args["_that_exprs"].([]string)

	for i, passed := range thatResults {
		if !passed {
			result.Failed = true
			if failMsg, ok := args["fail_msg"].(string); ok && failMsg != "" {
				result.Msg = failMsg
			} else if msg, ok := args["msg"].(string); ok && msg != "" {
				result.Msg = msg
			} else if i < len(thatExprs) {
				result.Msg = fmt.Sprintf("assertion failed: %s", thatExprs[i])
			} else {
				result.Msg = "assertion failed"
			}
			return result, nil
		}
	}

	result.Changed = false
	if successMsg, ok := args["success_msg"].(string); ok && successMsg != "" {
		result.Msg = successMsg
	} else {
		result.Msg = "all assertions passed"
	}
	return result, nil
}
