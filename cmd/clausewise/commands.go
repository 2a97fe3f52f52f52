package main

import (
	"fmt"
	"strings"

	"clausewise/internal/review"
)

const helpText = `## 可用命令

| 命令 | 说明 |
|------|------|
| 审核合同 <文件路径> | 加载并拆分合同（支持 .docx/.txt/.md） |
| auto / 自动审核 | 自动审核剩余全部章节 |
| status | 查看审核进度与问题统计 |
| export | 导出 Markdown 审核报告 |
| reset | 重置审核状态 |
| /技能名 [参数] | 调用已加载的技能 |
| help / ? | 显示本帮助 |
| quit / exit / q | 退出（有问题点时提示导出） |

直接输入任意内容与审核助手对话，例如「下一章」「这个问题点我不认可」。`

// commandResult is the outcome of handling one REPL input as a command.
type commandResult struct {
	handled    bool
	response   string
	quit       bool
	autoReview bool
}

// handleCommand intercepts the built-in commands before input reaches the
// agent. Unrecognized input flows through to the model.
func (a *app) handleCommand(input string) commandResult {
	raw := strings.TrimSpace(input)
	cmd := strings.ToLower(raw)

	// 审核合同 / 审查合同 <路径> loads directly, without the agent.
	for _, prefix := range []string{"审核合同", "审查合同"} {
		if strings.HasPrefix(raw, prefix) {
			path := strings.TrimSpace(strings.TrimPrefix(raw, prefix))
			if path == "" {
				return commandResult{handled: true, response: "请提供合同文件路径，例如：审核合同 合同.docx"}
			}
			summary, err := review.LoadContract(a.led, path)
			if err != nil {
				return commandResult{handled: true, response: "错误：" + err.Error()}
			}
			return commandResult{handled: true, response: summary}
		}
	}

	switch cmd {
	case "quit", "exit", "q":
		return commandResult{handled: true, quit: true}

	case "status":
		return commandResult{handled: true, response: a.reviewer.StatusText()}

	case "export":
		if a.led.ContractName() == "" {
			return commandResult{handled: true, response: "当前没有加载合同。"}
		}
		path, err := review.WriteReport(a.led, a.reportsDir())
		if err != nil {
			return commandResult{handled: true, response: "错误：导出失败 - " + err.Error()}
		}
		return commandResult{handled: true, response: "审核报告已导出到：" + path}

	case "reset":
		a.reviewer.Reset()
		return commandResult{handled: true, response: "已重置审核状态。"}

	case "help", "?":
		return commandResult{handled: true, response: a.helpWithSkills()}

	case "auto", "自动审核", "审核全部", "全部审核":
		if a.led.ContractName() == "" {
			return commandResult{handled: true, response: "当前没有加载合同。请先输入 '审核合同 <文件路径>' 加载合同。"}
		}
		if a.led.IsComplete() {
			return commandResult{handled: true, response: "所有章节已审核完毕。输入 'export' 导出报告。"}
		}
		return commandResult{handled: true, autoReview: true}
	}

	return commandResult{}
}

// helpWithSkills appends the loaded skill commands to the help text.
func (a *app) helpWithSkills() string {
	skills := a.loader.UserInvocable()
	if len(skills) == 0 {
		return helpText
	}
	var b strings.Builder
	b.WriteString(helpText)
	b.WriteString("\n\n## 已加载技能\n")
	for _, s := range skills {
		hint := ""
		if s.ArgumentHint != "" {
			hint = " " + s.ArgumentHint
		}
		fmt.Fprintf(&b, "- /%s%s: %s\n", s.Name, hint, s.Description)
	}
	return b.String()
}
