// Package report renders aggregated Gitea activity into the markdown
// documents delivered to the webhook. Rendering is pure and deterministic:
// section order follows the input slice order.
package report

import (
	"fmt"
	"strings"
	"time"

	"gitea-reporter/internal/dto"
)

// RenderRepoReport builds the repository-scoped daily report. The title
// carries the report date, which is the window's lower bound.
func RenderRepoReport(reportDate time.Time, sections []dto.RepoReportSection) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("### 🚀 代码提交与任务日报 (%s)\n\n", reportDate.Format("2006-01-02")))

	hasContent := false
	totalCommits := 0
	for _, section := range sections {
		if !section.HasContent() {
			continue
		}
		hasContent = true
		totalCommits += len(section.Commits)

		b.WriteString(fmt.Sprintf("#### 📦 %s\n", section.Repo))

		if len(section.Commits) > 0 {
			b.WriteString("**[代码提交]**\n")
			for _, c := range section.Commits {
				b.WriteString(fmt.Sprintf("- %s (@%s)\n", c.Message, c.Author))
			}
		}

		if len(section.PullRequests) > 0 {
			b.WriteString("**[待处理 PR]**\n")
			for _, p := range section.PullRequests {
				b.WriteString(fmt.Sprintf("- #%d %s (@%s)\n", p.Number, p.Title, p.User))
			}
		}

		if len(section.Issues) > 0 {
			b.WriteString("**[未关闭 Issue]**\n")
			for _, i := range section.Issues {
				b.WriteString(fmt.Sprintf("- #%d %s (@%s)\n", i.Number, i.Title, i.User))
			}
		}

		b.WriteString("\n")
	}

	if !hasContent {
		b.WriteString("此时间段内无活跃记录。")
	} else {
		b.WriteString(fmt.Sprintf("---\n**活跃概览: %d 提交**", totalCommits))
	}
	return b.String()
}

// RenderActivityReport builds the per-user activity trail report. Commit
// lines come from the push events' embedded payloads, deduplicated by hash
// with the first occurrence winning.
func RenderActivityReport(reportDate time.Time, sections []dto.ActivityReportSection, userFullName string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("### 📝 %s 的个人活动轨迹 (%s)\n\n", userFullName, reportDate.Format("2006-01-02")))

	if len(sections) == 0 {
		b.WriteString("此时间段内无活动轨迹。")
		return b.String()
	}

	for _, section := range sections {
		b.WriteString(fmt.Sprintf("#### 📦 %s\n", section.Repo))

		commitMessages := dedupPushMessages(section.Events)
		if len(commitMessages) > 0 {
			b.WriteString("**[代码提交]**\n")
			for _, msg := range commitMessages {
				b.WriteString(fmt.Sprintf("- %s\n", msg))
			}
		}

		for _, event := range section.Events {
			if event.IsPush() {
				continue
			}
			switch event.OpType {
			case dto.OpCreateIssue:
				b.WriteString(fmt.Sprintf("- 创建了 Issue #%d %s\n", event.Index, event.Content))
			case dto.OpCloseIssue:
				b.WriteString(fmt.Sprintf("- 关闭了 Issue #%d\n", event.Index))
			case dto.OpCreatePullRequest:
				b.WriteString(fmt.Sprintf("- 创建了 PR #%d %s\n", event.Index, event.Content))
			case dto.OpMergePullRequest:
				b.WriteString(fmt.Sprintf("- 合并了 PR #%d\n", event.Index))
			case dto.OpCommentIssue, dto.OpCommentPullRequest:
				b.WriteString(fmt.Sprintf("- 发表了评论于 #%d\n", event.Index))
			}
			// Unknown event types are dropped.
		}
		b.WriteString("\n")
	}

	return b.String()
}

// dedupPushMessages collects the commit messages embedded in push events,
// keyed by commit hash; insertion order is preserved.
func dedupPushMessages(events []dto.ActivityEvent) []string {
	var messages []string
	seen := make(map[string]struct{})
	for _, event := range events {
		for _, commit := range event.PushCommits() {
			if _, ok := seen[commit.SHA]; ok {
				continue
			}
			if msg := strings.TrimSpace(commit.Message); msg != "" {
				messages = append(messages, msg)
				seen[commit.SHA] = struct{}{}
			}
		}
	}
	return messages
}
