package kb

import (
	"context"
	"fmt"
	"strings"

	"clausewise/internal/tools"
)

// NewRagQueryTool exposes the knowledge base as the rag_query tool. Missing
// configuration and transport failures come back as observation text so the
// dispatch loop keeps running.
func NewRagQueryTool(client *Client) *tools.Tool {
	return &tools.Tool{
		Name:        "rag_query",
		Description: "查询法律知识库，获取相关法律条文和判例。用于辅助合同条款分析。",
		Schema: tools.Schema{
			Properties: map[string]tools.Property{
				"query": {
					Type:        "string",
					Description: "查询内容，例如：'关于违约金上限的规定'",
				},
				"top_k": {
					Type:        "integer",
					Description: "返回结果数量，默认 3",
					Default:     3,
				},
			},
			Required: []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			topK := 3
			if v, ok := args["top_k"].(float64); ok && v > 0 {
				topK = int(v)
			}

			if !client.Configured() {
				return "错误：未配置 LLAMACLOUD_API_KEY 或 LLAMACLOUD_INDEX_ID", nil
			}

			results, err := client.Retrieve(ctx, query, topK)
			if err != nil {
				return fmt.Sprintf("错误：知识库查询异常 - %v", err), nil
			}
			if len(results) == 0 {
				return fmt.Sprintf("未找到与 '%s' 相关的知识", query), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "【知识库查询结果】查询：%s\n", query)
			for i, r := range results {
				fmt.Fprintf(&b, "\n--- 结果 %d (相关度: %.2f) ---\n", i+1, r.Score)
				b.WriteString(r.Text)
			}
			return b.String(), nil
		},
	}
}
