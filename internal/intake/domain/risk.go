package domain

import (
	"regexp"
	"strings"
	"unicode"
)

// RiskCategory 风险类别
type RiskCategory string

const (
	CategoryTriggeringContent     RiskCategory = "triggering-content"
	CategoryNamedIndividual       RiskCategory = "named-individual"
	CategorySpamIndicator         RiskCategory = "spam-indicator"
	CategoryInappropriateLanguage RiskCategory = "inappropriate-language"
	CategoryEmbeddedContactInfo   RiskCategory = "embedded-contact-info"
)

// RiskSeverity 风险严重度，提交总分为各命中类别严重度之和
type RiskSeverity int

const (
	SeverityWarning RiskSeverity = 1
	SeverityReview  RiskSeverity = 2
)

// RiskFlag 单个风险类别的命中结果，写入审核备注供人工处理
type RiskFlag struct {
	Category RiskCategory `json:"category"`
	Severity RiskSeverity `json:"severity"`
	Message  string       `json:"message"`
	// Matches 命中的原文片段，去重后保留，供审核人员定位
	Matches []string `json:"matches"`
}

// RiskReport 内容风险评分结果
type RiskReport struct {
	Flagged bool       `json:"flagged"`
	Score   int        `json:"score"`
	Flags   []RiskFlag `json:"flags"`
}

// riskRule 声明式风险规则：新增类别即新增数据，不新增代码路径
type riskRule struct {
	category RiskCategory
	severity RiskSeverity
	message  string
	match    func(text string) []string
}

// regexMatcher 依次应用各模式，模式带捕获组时取第一组，否则取整段匹配
func regexMatcher(patterns ...*regexp.Regexp) func(string) []string {
	return func(text string) []string {
		var out []string
		for _, re := range patterns {
			if re.NumSubexp() > 0 {
				for _, groups := range re.FindAllStringSubmatch(text, -1) {
					out = append(out, groups[1])
				}
				continue
			}
			out = append(out, re.FindAllString(text, -1)...)
		}
		return out
	}
}

var (
	triggeringPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:kill(?:ing|ed)? (?:myself|himself|herself)|end(?:ed|ing)? (?:my|his|her) life|suicide|suicidal)\b`),
		regexp.MustCompile(`(?i)\b(?:cut(?:ting)? (?:myself|himself|herself)|slit (?:my|his|her) wrists?|overdos(?:e|ed|ing)|hang(?:ed|ing)? (?:myself|himself|herself))\b`),
		regexp.MustCompile(`(?i)\b(?:shoot(?:ing)? up|inject(?:ed|ing)? (?:heroin|meth)|smok(?:ed|ing) meth|snort(?:ed|ing)? (?:coke|cocaine))\b`),
	}

	namedIndividualPatterns = []*regexp.Regexp{
		// 头衔 + 姓氏，如 Dr. Smith
		regexp.MustCompile(`(?i)\b(?:dr|doctor|mr|mrs|ms|prof|professor)\.?\s+[a-z][a-z]+\b`),
		// 职务 + 姓氏，如 Officer Jones
		regexp.MustCompile(`(?i)\b(?:officer|deputy|sergeant|detective|nurse|judge|coach|pastor|counselor|therapist)\s+[a-z][a-z]+\b`),
		// 机构名短语，如 at Sunrise Rehab
		regexp.MustCompile(`(?i)\bat\s+(?:[a-z][\w']*\s+){1,3}(?:rehab|rehabilitation|recovery|treatment|detox)(?:\s+(?:center|centre|facility|house|clinic))?\b`),
	}

	promotionalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:buy now|click here|limited time offer|act now|100% free|free trial|make money fast|work from home|earn cash|check out my|visit my (?:site|website|page))\b`),
		regexp.MustCompile(`(?i)\b(?:viagra|cialis|casino|payday loans?|forex signals?|crypto giveaway)\b`),
	}

	inappropriatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:fuck(?:ing|er|ed)?|shit(?:ty)?|bitch|asshole|bastard|cunt|dickhead)\b`),
	}

	contactInfoPatterns = []*regexp.Regexp{
		// 电话号码形状的数字序列
		regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]\d{3}[-.\s]?\d{4}\b`),
		regexp.MustCompile(`\b\d{10}\b`),
		// 邮箱形状
		regexp.MustCompile(`\b[0-9A-Za-z._%+-]+@[0-9A-Za-z.-]+\.[A-Za-z]{2,}\b`),
		// @handle 形状，前面不能是邮箱本地部分的字符
		regexp.MustCompile(`(?:^|[^0-9A-Za-z._%+-])(@[A-Za-z0-9_]{2,})\b`),
	}

	urlPattern = regexp.MustCompile(`(?i)https?://[^\s]+`)
)

// matchMultipleURLs 单段文本里出现两个以上链接才算垃圾信号
func matchMultipleURLs(text string) []string {
	urls := urlPattern.FindAllString(text, -1)
	if len(urls) < 2 {
		return nil
	}
	return urls
}

// matchRepeatedRun 同一非空白字符连续出现 8 次以上
func matchRepeatedRun(text string) []string {
	var out []string
	runes := []rune(text)
	for i := 0; i < len(runes); {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i >= 8 && !unicode.IsSpace(runes[i]) {
			out = append(out, string(runes[i:j]))
		}
		i = j
	}
	return out
}

// matchAllCapsRun 连续大写字母段，合计 12 个以上字母且无小写
func matchAllCapsRun(text string) []string {
	var out []string
	runes := []rune(text)
	start := -1
	letters := 0
	flush := func(end int) {
		if start >= 0 && letters >= 12 {
			out = append(out, strings.TrimSpace(string(runes[start:end])))
		}
		start = -1
		letters = 0
	}
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if start < 0 {
				start = i
			}
			letters++
		case r == ' ' || r == '!' || r == '?' || r == ',' || r == '.':
			// 大写段内允许的间隔符
			if start < 0 {
				continue
			}
		default:
			flush(i)
		}
	}
	flush(len(runes))
	return out
}

// matchAny 把多个匹配函数合并为一个规则的匹配函数
func matchAny(fns ...func(string) []string) func(string) []string {
	return func(text string) []string {
		var out []string
		for _, fn := range fns {
			out = append(out, fn(text)...)
		}
		return out
	}
}

// defaultRiskRules 固定顺序求值，保证同一输入的输出完全一致
var defaultRiskRules = []riskRule{
	{
		category: CategoryTriggeringContent,
		severity: SeverityReview,
		message:  "Possible triggering content (self-harm or graphic substance use); review before publishing",
		match:    regexMatcher(triggeringPatterns...),
	},
	{
		category: CategoryNamedIndividual,
		severity: SeverityReview,
		message:  "Names a specific individual or facility; verify consent before publishing",
		match:    regexMatcher(namedIndividualPatterns...),
	},
	{
		category: CategorySpamIndicator,
		severity: SeverityWarning,
		message:  "Promotional or spam-like content detected",
		match:    matchAny(regexMatcher(promotionalPatterns...), matchMultipleURLs, matchRepeatedRun, matchAllCapsRun),
	},
	{
		category: CategoryInappropriateLanguage,
		severity: SeverityReview,
		message:  "Contains inappropriate language",
		match:    regexMatcher(inappropriatePatterns...),
	},
	{
		category: CategoryEmbeddedContactInfo,
		severity: SeverityWarning,
		message:  "Contains embedded contact information (phone, email or handle)",
		match:    matchAny(regexMatcher(contactInfoPatterns...)),
	},
}

// ScoreContent 对标题与正文做内容风险评分。
// 纯函数：同一输入永远产生同样的 flags、matches 与分数。
// 每个命中的类别只贡献一条 flag，matches 为该类别内去重后的命中片段。
// 评分只做标注，从不阻断提交本身。
func ScoreContent(title, body string) RiskReport {
	text := strings.TrimSpace(title + "\n" + body)
	report := RiskReport{}
	if text == "" {
		return report
	}

	for _, rule := range defaultRiskRules {
		matches := dedupe(rule.match(text))
		if len(matches) == 0 {
			continue
		}
		report.Flags = append(report.Flags, RiskFlag{
			Category: rule.category,
			Severity: rule.severity,
			Message:  rule.message,
			Matches:  matches,
		})
		report.Score += int(rule.severity)
	}

	report.Flagged = len(report.Flags) > 0
	return report
}

// dedupe 去重并保持首次出现顺序
func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
