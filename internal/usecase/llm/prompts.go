package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
)

// The prompts are Russian because the monitored feeds and the digest audience
// are Russian-language. Each prompt ends with a JSON contract the response
// parser depends on.

const relevanceTopics = `Релевантными считаются темы:

1. COMPLIANCE И ПРОВЕРКИ:
- KYC (Know Your Customer) - идентификация и проверка клиентов
- AML (Anti-Money Laundering) - противодействие отмыванию денег
- Compliance и комплаенс - соответствие регуляторным требованиям
- Due Diligence - комплексные проверки контрагентов

2. САНКЦИОННЫЕ СПИСКИ И ПРОВЕРКИ:
- Санкционные списки и проверка по ним
- OFAC (Office of Foreign Assets Control)
- PEP (Politically Exposed Persons) - политически значимые лица
- World-Check, LexisNexis и другие системы проверки

3. БАНКОВСКИЕ БЛОКИРОВКИ:
- Блокировка счетов (в пределах 3 слов от "счет")
- Закрытие счетов (в пределах 3 слов от "счет")
- Проверка благонадежности (в пределах 5 слов)
- Частный капитал, private wealth management

4. РЕПУТАЦИОННЫЕ РИСКИ:
- Репутационные риски, кризисы, ущерб (в пределах 5 слов)
- Онлайн-репутация, цифровая репутация
- Репутационные скандалы и атаки

5. УПРАВЛЕНИЕ ПОИСКОВОЙ ВЫДАЧЕЙ:
- Негатив в поисковой выдаче или результатах поиска
- Ложная информация или компромат в поиске
- Негативные или фейковые отзывы, влияющие на репутацию бизнеса

6. PR-КРИЗИСЫ И АТАКИ:
- Черный PR против компаний или брендов
- Информационные атаки на бизнес
- PR-кризисы компаний

7. УСЛУГИ УПРАВЛЕНИЯ РЕПУТАЦИЕЙ:
- Управление репутацией как услуга
- SERM (Search Engine Reputation Management)
- Специалисты по цифровому профилю

НЕ РЕЛЕВАНТНЫ (исключения):
- Спорт (футбол, хоккей, теннис и т.д.) - КРОМЕ коррупционных скандалов
- Шоу-бизнес (артисты, певцы, актеры) - КРОМЕ связи с бизнес-репутацией
- Бытовые происшествия без связи с бизнесом
- Общие политические новости без связи с санкциями или бизнесом
- Технологические новости без связи с compliance или безопасностью`

const relevanceContract = `Ответь ТОЛЬКО в формате JSON:
{
 "relevant": true/false,
 "score": 0.0-1.0,
 "reason": "краткое обоснование",
 "matched_topics": ["список совпавших тем"]
}`

// buildRelevancePrompt renders the Stage A prompt. Content is cut to 1000
// characters: the head of an article decides its topic.
func buildRelevancePrompt(title, content string) string {
	return fmt.Sprintf(`Определи, релевантна ли эта публикация для бизнеса в области репутационного консалтинга.

%s

Публикация:
Заголовок: %s
Содержание: %s...

Внимательно проанализируй текст на наличие ключевых терминов и контекста.
Учитывай близость слов (например, "блокировка" должна быть рядом со "счет").

%s`, relevanceTopics, title, truncateRunes(content, 1000), relevanceContract)
}

// buildStrictRelevancePrompt renders the Stage D prompt: same inventory,
// tightened instructions. It runs only over articles a looser pass already
// accepted, so it pushes the model toward rejection on doubt.
func buildStrictRelevancePrompt(title, content string) string {
	return fmt.Sprintf(`Проведи СТРОГУЮ повторную проверку релевантности этой публикации для бизнеса в области репутационного консалтинга.

%s

Публикация:
Заголовок: %s
Содержание: %s...

Будь максимально строгим: если связь с перечисленными темами косвенная или
сомнительная, считай публикацию НЕ релевантной и ставь низкий score.
Высокий score (0.7 и выше) ставь только при явном совпадении с темами.

%s`, relevanceTopics, title, truncateRunes(content, 1000), relevanceContract)
}

// buildClassifyPrompt renders the Stage B prompt listing the taxonomy.
// Categories are emitted in sorted order so the prompt is deterministic.
func buildClassifyPrompt(title, content string, taxonomy entity.Taxonomy) string {
	categories := make([]string, 0, len(taxonomy))
	for category := range taxonomy {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	lines := make([]string, 0, len(categories))
	for _, category := range categories {
		lines = append(lines, fmt.Sprintf("- %s: %s", category, strings.Join(taxonomy[category], ", ")))
	}

	return fmt.Sprintf(`Классифицируй эту публикацию по одной из следующих категорий:

%s

Публикация:
Заголовок: %s
Содержание: %s...

Выбери ОДНУ наиболее подходящую категорию и подкатегорию.

Ответь ТОЛЬКО в формате JSON:
{
 "category": "название категории",
 "subcategory": "название подкатегории",
 "confidence": 0.0-1.0
}`, strings.Join(lines, "\n"), title, truncateRunes(content, 1500))
}

// buildSummaryPrompt renders the Stage C prompt for one article. The response
// must be a single-element JSON array echoing the post id, which the caller
// verifies.
func buildSummaryPrompt(postID, title, content string) string {
	return fmt.Sprintf(`Составь краткое содержание этой публикации на русском языке (3-5 предложений).
Передай суть события, названия компаний и ключевые факты без оценок и рекомендаций.

[POST_ID:%s]
Заголовок: %s
Содержание: %s

Ответь ТОЛЬКО в формате JSON-массива из одного объекта:
[
 {
  "post_id": "%s",
  "title": "заголовок",
  "summary": "краткое содержание на русском языке"
 }
]`, postID, title, truncateRunes(content, summaryContentLimit), postID)
}

// truncateRunes cuts s to at most limit runes without splitting a character.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
