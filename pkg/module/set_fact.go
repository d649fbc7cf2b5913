package module

import (
	"github.com/sansible/sansible/pkg/connection"
)

// SetFactModule set_fact 模块实现
// set_fact 设置主机变量，本身不接触远程连接；每个参数名都成为一个
// 新 fact，runner 在模块返回后把 AnsibleFacts 合并进该主机的变量上下文。
type SetFactModule struct{}

// Execute 执行 set_fact 模块
func (m *SetFactModule) Execute(conn *connection.Connection, args map[string]interface{}, opts RunOptions) (*Result, error) {
	facts := make(map[string]interface{}, len(args))
	for k, v := range args {
		if k == "cacheable" {
			continue
		}
		facts[k] = v
	}

	return &Result{
		Changed:      false,
		AnsibleFacts: facts,
		Msg:          "facts set",
	}, nil
}
