package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"clausewise/internal/tools"
)

// NewManageIssuesTool builds the manage_issues tool over a ledger. Every
// operation returns user-facing text; hard failures stay inside the
// returned string so the dispatch loop can always feed them back as
// observations.
func NewManageIssuesTool(led *Ledger) *tools.Tool {
	return &tools.Tool{
		Name: "manage_issues",
		Description: "管理合同审核问题点。支持的操作：add（添加）、batch_add（批量添加）、update（更新）、delete（删除）、" +
			"list（列出）、confirm（确认）、reject（拒绝）、get_current_section（获取当前章节）、" +
			"next_section（下一章节）、prev_section（上一章节）、export（导出报告）",
		Schema: tools.Schema{
			Properties: map[string]tools.Property{
				"operation": {
					Type:        "string",
					Description: "操作类型",
					Enum: []any{
						"add", "batch_add", "update", "delete", "list",
						"confirm", "reject", "get_current_section",
						"next_section", "prev_section", "export",
					},
				},
				"issue_id": {
					Type:        "string",
					Description: "问题点 ID（用于 update/delete/confirm/reject 操作）",
				},
				"clause": {
					Type:        "string",
					Description: "相关条款内容（用于 add 操作）",
				},
				"problem": {
					Type:        "string",
					Description: "问题描述（用于 add/update 操作）",
				},
				"severity": {
					Type:        "string",
					Description: "严重程度：high/medium/low（用于 add/update 操作）",
					Enum:        []any{"high", "medium", "low"},
				},
				"suggestion": {
					Type:        "string",
					Description: "修改建议（用于 add/update 操作）",
				},
				"feedback": {
					Type:        "string",
					Description: "用户反馈（用于 reject 操作）",
				},
				"issues_json": {
					Type:        "string",
					Description: "批量添加的问题点 JSON 数组（用于 batch_add 操作），每个元素需包含 clause、problem、severity、suggestion",
				},
			},
			Required: []string{"operation"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			op, _ := args["operation"].(string)
			switch op {
			case "get_current_section":
				return getCurrentSection(led)
			case "next_section":
				return nextSection(led), nil
			case "prev_section":
				return prevSection(led), nil
			case "add":
				return addIssue(led, args), nil
			case "batch_add":
				return batchAddIssues(led, args), nil
			case "update":
				return updateIssue(led, args), nil
			case "delete":
				return deleteIssue(led, args), nil
			case "list":
				return listIssues(led)
			case "confirm":
				return confirmIssue(led, args), nil
			case "reject":
				return rejectIssue(led, args), nil
			case "export":
				return ExportReport(led), nil
			default:
				return fmt.Sprintf("错误：未知操作 '%s'", op), nil
			}
		},
	}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func getCurrentSection(led *Ledger) (string, error) {
	section := led.CurrentSection()
	if section == nil {
		return "当前没有加载合同，请先通过「审核合同 <文件路径>」加载合同。", nil
	}
	issues := led.CurrentSectionIssues()
	if issues == nil {
		issues = []*Issue{}
	}
	data, err := json.MarshalIndent(map[string]any{
		"section_index":        section.Index,
		"section_title":        section.Title,
		"section_content":      section.Content,
		"total_sections":       led.TotalSections(),
		"current_issues_count": len(issues),
		"issues":               issues,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func nextSection(led *Ledger) string {
	section := led.NextSection()
	if section == nil {
		return "已经是最后一个章节了。"
	}
	return fmt.Sprintf("已切换到章节 %d/%d：%s", section.Index+1, led.TotalSections(), section.Title)
}

func prevSection(led *Ledger) string {
	section := led.PrevSection()
	if section == nil {
		return "已经是第一个章节了。"
	}
	return fmt.Sprintf("已切换到章节 %d/%d：%s", section.Index+1, led.TotalSections(), section.Title)
}

func addIssue(led *Ledger, args map[string]any) string {
	clause := stringArg(args, "clause")
	problem := stringArg(args, "problem")
	severity := stringArg(args, "severity")
	suggestion := stringArg(args, "suggestion")
	if clause == "" || problem == "" || severity == "" || suggestion == "" {
		return "错误：添加问题点需要提供 clause、problem、severity、suggestion 参数"
	}
	sev, err := ParseSeverity(severity)
	if err != nil {
		return fmt.Sprintf("错误：无效的严重程度 '%s'，应为 high/medium/low", severity)
	}
	issue, err := led.AddIssue(-1, clause, problem, sev, suggestion)
	if err != nil {
		return "错误：" + err.Error()
	}
	return fmt.Sprintf("已添加问题点 [%s]：%s", issue.ID, problem)
}

// batchIssueInput mirrors the documented batch_add element shape.
type batchIssueInput struct {
	Clause     string `json:"clause"`
	Problem    string `json:"problem"`
	Severity   string `json:"severity"`
	Suggestion string `json:"suggestion"`
}

// batchAddIssues adds every well-formed element of issues_json. Malformed
// elements are rejected individually with their position; they never abort
// the rest of the batch.
func batchAddIssues(led *Ledger, args map[string]any) string {
	raw := stringArg(args, "issues_json")
	if raw == "" {
		return "错误：batch_add 需要提供 issues_json 参数（JSON 数组）"
	}

	var inputs []batchIssueInput
	if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
		return fmt.Sprintf("错误：issues_json 不是有效的 JSON 数组 - %v", err)
	}
	if len(inputs) == 0 {
		return "错误：issues_json 为空数组"
	}

	var added, failed []string
	for i, in := range inputs {
		if in.Clause == "" || in.Problem == "" || in.Severity == "" || in.Suggestion == "" {
			failed = append(failed, fmt.Sprintf("第 %d 项：缺少 clause/problem/severity/suggestion 字段", i+1))
			continue
		}
		sev, err := ParseSeverity(in.Severity)
		if err != nil {
			failed = append(failed, fmt.Sprintf("第 %d 项：无效的严重程度 '%s'", i+1, in.Severity))
			continue
		}
		issue, err := led.AddIssue(-1, in.Clause, in.Problem, sev, in.Suggestion)
		if err != nil {
			failed = append(failed, fmt.Sprintf("第 %d 项：%v", i+1, err))
			continue
		}
		added = append(added, issue.ID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "批量添加完成：成功 %d 条，失败 %d 条。", len(added), len(failed))
	if len(added) > 0 {
		fmt.Fprintf(&b, "\n已添加：%s", strings.Join(added, "、"))
	}
	for _, f := range failed {
		b.WriteString("\n" + f)
	}
	return b.String()
}

func updateIssue(led *Ledger, args map[string]any) string {
	id := stringArg(args, "issue_id")
	if id == "" {
		return "错误：更新问题点需要提供 issue_id 参数"
	}

	var upd IssueUpdate
	if problem := stringArg(args, "problem"); problem != "" {
		upd.Problem = &problem
	}
	if severity := stringArg(args, "severity"); severity != "" {
		sev, err := ParseSeverity(severity)
		if err != nil {
			return fmt.Sprintf("错误：无效的严重程度 '%s'，应为 high/medium/low", severity)
		}
		upd.Severity = &sev
	}
	if suggestion := stringArg(args, "suggestion"); suggestion != "" {
		upd.Suggestion = &suggestion
	}

	if _, err := led.UpdateIssue(id, upd); err != nil {
		return fmt.Sprintf("错误：未找到问题点 '%s'", id)
	}
	return fmt.Sprintf("已更新问题点 [%s]", id)
}

func deleteIssue(led *Ledger, args map[string]any) string {
	id := stringArg(args, "issue_id")
	if id == "" {
		return "错误：删除问题点需要提供 issue_id 参数"
	}
	if led.DeleteIssue(id) {
		return fmt.Sprintf("已删除问题点 [%s]", id)
	}
	return fmt.Sprintf("错误：未找到问题点 '%s'", id)
}

func listIssues(led *Ledger) (string, error) {
	issues := led.Issues()
	if len(issues) == 0 {
		return "当前没有问题点。", nil
	}
	data, err := json.MarshalIndent(map[string]any{
		"total":       len(issues),
		"by_severity": led.CountBySeverity(),
		"issues":      issues,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func confirmIssue(led *Ledger, args map[string]any) string {
	id := stringArg(args, "issue_id")
	if id == "" {
		return "错误：确认问题点需要提供 issue_id 参数"
	}
	if _, err := led.ConfirmIssue(id); err != nil {
		return fmt.Sprintf("错误：未找到问题点 '%s'", id)
	}
	return fmt.Sprintf("已确认问题点 [%s]", id)
}

func rejectIssue(led *Ledger, args map[string]any) string {
	id := stringArg(args, "issue_id")
	if id == "" {
		return "错误：拒绝问题点需要提供 issue_id 参数"
	}
	if _, err := led.RejectIssue(id, stringArg(args, "feedback")); err != nil {
		return fmt.Sprintf("错误：未找到问题点 '%s'", id)
	}
	return fmt.Sprintf("已拒绝问题点 [%s]", id)
}
