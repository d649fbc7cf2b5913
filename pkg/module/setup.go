package module

import (
	"github.com/sansible/sansible/pkg/connection"
	"github.com/sansible/sansible/pkg/facts"
)

// SetupModule setup 模块实现
// setup 是 gather_facts 真正调用的模块；之前 pkg/facts.GatherFacts 只
// 被 runner 内部直接调用，这里把它注册成一个普通模块，使
// "gather_facts: true"/显式 setup 任务和手动 ansible -m setup 走同一
// 条路径。
type SetupModule struct{}

// Execute 执行 setup 模块
func (m *SetupModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	gathered, err := facts.GatherFacts(conn)
	if err != nil {
		return &Result{Failed: true, Msg: err.Error()}, nil
	}

	return &Result{
		Changed:      false,
		AnsibleFacts: map[string]interface{}(gathered),
		Msg:          "facts gathered",
	}, nil
}
