package usecase

import (
	"fmt"
	"strings"

	"campus-assistant/internal/domain"
)

// maxBodyRunes caps how much of one record's body goes into a prompt.
const maxBodyRunes = 2000

// maxBriefRunes caps one daily brief inside a QA or weekly prompt.
const maxBriefRunes = 1500

// PromptBuilder renders the identity-flavored prompts for daily summaries,
// weekly aggregates and grounded question answering.
type PromptBuilder interface {
	DailySummary(date string, identity domain.Identity, records []domain.NewsRecord) []domain.Message
	WeeklySummary(endDate string, identity domain.Identity, dailies []domain.Report) []domain.Message
	Question(question string, identity domain.Identity, grounding []domain.NewsRecord) []domain.Message
}

type promptBuilder struct{}

// NewPromptBuilder creates the default prompt builder.
func NewPromptBuilder() PromptBuilder {
	return &promptBuilder{}
}

func identityLabel(identity domain.Identity) string {
	if identity == domain.IdentityTeacher {
		return "教师"
	}
	return "学生"
}

// DailySummary builds one prompt per identity from the day's records, in
// date-then-insertion order. The two audiences require materially different
// emphasis, so each identity gets its own generation.
func (b *promptBuilder) DailySummary(date string, identity domain.Identity, records []domain.NewsRecord) []domain.Message {
	var system string
	if identity == domain.IdentityStudent {
		system = "你是一个资深教务秘书。以下是同一天内若干条教务/活动新闻。" +
			"请生成面向学生的当日总结，聚焦：截止日期、学分/综测、报名入口/操作步骤、注意事项。" +
			"当日若有多条新闻，请将要点分类并用有序列表清晰列出，使用格式为【简短要点子标题】：总结描述。"
	} else {
		system = "你是一个资深教务秘书。以下是同一天内若干条教务/活动新闻。" +
			"请生成面向教师的当日总结，聚焦：管理职责、督促/组织事项、关键节点时间、需要协调的工作点。" +
			"当日若有多条新闻，请将要点分类并用有序列表清晰列出，使用格式为【简短要点子标题】：总结描述。"
	}

	blocks := []string{fmt.Sprintf("【日期】%s", date)}
	for idx, rec := range records {
		blocks = append(blocks, fmt.Sprintf(
			"【新闻%d】\n标题：%s\n来源：%s\n发布时间：%s\n正文：\n%s\n",
			idx+1, rec.Title, rec.Source, rec.Date, truncateRunes(rec.Body, maxBodyRunes)))
	}

	return []domain.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: strings.Join(blocks, "\n")},
	}
}

// WeeklySummary condenses the week's daily summaries (already filtered and
// audience-specific) into one narrative, never re-reading raw records.
func (b *promptBuilder) WeeklySummary(endDate string, identity domain.Identity, dailies []domain.Report) []domain.Message {
	system := fmt.Sprintf(
		"你是一个智慧校园助手。当前用户是【%s】。以下是过去一周每天的新闻简报。"+
			"请将它们浓缩为一份本周总结，合并重复事项，按重要性排序，保留所有截止日期。",
		identityLabel(identity))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("【本周结束日期】%s\n【历史简报】：\n", endDate))
	for _, rep := range dailies {
		sb.WriteString(fmt.Sprintf("[%s]：%s\n", rep.Scope.Date, truncateRunes(rep.Summary, maxBriefRunes)))
	}

	return []domain.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: sb.String()},
	}
}

// Question embeds the grounding records plus the user's question.
func (b *promptBuilder) Question(question string, identity domain.Identity, grounding []domain.NewsRecord) []domain.Message {
	system := fmt.Sprintf(
		"你是智慧校园助手，帮助用户处理教务相关问题。当前用户是【%s】。"+
			"请根据给定的【过去一段时间的新闻简报】，回答用户的问题。"+
			"如果简报中没有相关信息，请直接说：最近没有该类新闻/通知，不知道。",
		identityLabel(identity))

	var sb strings.Builder
	sb.WriteString("【历史简报】：\n")
	if len(grounding) == 0 {
		sb.WriteString("暂无最近的新闻简报。\n")
	}
	for _, rec := range grounding {
		sb.WriteString(fmt.Sprintf("[%s] %s：%s\n", rec.Date, rec.Title, truncateRunes(rec.Body, maxBriefRunes)))
	}
	sb.WriteString(fmt.Sprintf("\n【用户问题】：%s", question))

	return []domain.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: sb.String()},
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "..."
}
