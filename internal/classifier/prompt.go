package classifier

import (
	"fmt"
	"strings"

	"NewsDigest/internal/domain"
)

const classifySystemPrompt = "당신은 글로벌 금융, 암호화폐, 정치 시장을 분석하는 전문가입니다. " +
	"모든 응답은 100% 한국어로만 작성하세요. 회사명, 인물명, 기술 용어도 한국어로 표기하고 " +
	"영어나 다른 외국어를 사용하지 마세요. 응답은 지정된 JSON 객체 하나뿐이어야 합니다."

const translateSystemPrompt = "당신은 전문 번역가입니다. 모든 응답은 100% 한국어로만 작성하고 " +
	"번역문 외에는 아무것도 출력하지 마세요."

const classifyInstructions = `다음 게시물들을 분석하여 각각 분류하고 요약하세요.

규칙:
1. 모든 JSON 값은 한국어로 작성합니다. 외국어 게시물은 먼저 번역한 뒤 분석합니다.
2. category는 다음 중 하나입니다: %s.
3. headline은 15-20자, 명사형으로 끝냅니다.
4. summary는 핵심 내용과 시장 영향을 담은 2-3문장입니다.
5. analysis는 원인과 배경을 다룬 1-2문장입니다.
6. market_impact는 시장에 미치는 실질적 영향입니다.
7. importance는 1-10 사이 정수입니다 (파급력 1-3, 시장 영향 4-6, 긴급성 7-10).
8. 내용이 겹치는 게시물은 정보가 가장 많은 것 하나만 포함합니다.

응답 형식:
{"results": [{"index": 0, "category": "암호화폐", "headline": "...", "summary": "...", "analysis": "...", "importance": 7, "market_impact": "..."}]}

게시물 목록:
%s`

func buildChunkPrompt(posts []domain.NormalizedPost) string {
	labels := make([]string, 0, len(domain.Topics))
	for _, cat := range domain.Topics {
		labels = append(labels, cat.Label())
	}

	entries := make([]string, 0, len(posts))
	for i, post := range posts {
		author := post.Author
		if author == "" {
			author = "unknown"
		}
		entry := fmt.Sprintf("[%d] @%s (참여도:%.0f)\n%s", i, author, post.EngagementScore, post.Text)
		if post.URL != "" {
			entry += "\nURL: " + post.URL
		}
		entries = append(entries, entry)
	}

	return fmt.Sprintf(classifyInstructions, strings.Join(labels, ", "), strings.Join(entries, "\n\n---\n\n"))
}

func buildTranslatePrompt(text string) string {
	return "다음 텍스트를 한국어로 번역하세요. 반드시 한국어로만 응답하세요:\n\n" + text + "\n\n한국어 번역:"
}
