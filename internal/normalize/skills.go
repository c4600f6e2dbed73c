package normalize

import (
	"regexp"
	"slices"

	"github.com/samber/lo"
)

type skillPattern struct {
	name string
	re   *regexp.Regexp
}

func skill(name, pattern string) skillPattern {
	return skillPattern{name: name, re: regexp.MustCompile(pattern)}
}

// skillDictionary is matched against title and description. Patterns are
// case-insensitive unless they need to tell a word from a name ("Go", "Rails").
var skillDictionary = []skillPattern{
	// "Go" counts only next to language context, so "Go to market" and
	// "Go-to-market" do not.
	skill("Go", `(?:\b(?:in|with|of|using|writing|and|or)\s+|[(,/]\s*)Go(?:[^\w-]|$)|`+
		`\bGo(?:\s*[,/)]|\s+(?:and|or)\s|\s+(?:developer|engineer|programming|services?|code|backend|microservices|experience)\b)|`+
		`(?i)\bgolang\b`),
	skill("Python", `(?i)\bpython\b`),
	skill("Java", `(?i)\bjava\b`),
	skill("Kotlin", `(?i)\bkotlin\b`),
	skill("Scala", `(?i)\bscala\b`),
	skill("Rust", `\bRust\b`),
	skill("Ruby", `(?i)\bruby\b`),
	skill("Rails", `\bRails\b|(?i)\bruby on rails\b`),
	skill("PHP", `(?i)\bphp\b`),
	skill("Elixir", `(?i)\belixir\b`),
	skill("C#", `(?i)(^|[^\w])c#`),
	skill("C++", `(?i)(^|[^\w])c\+\+`),
	skill(".NET", `(?i)\.net\b`),
	skill("JavaScript", `(?i)\bjavascript\b`),
	skill("TypeScript", `(?i)\btypescript\b`),
	skill("Node.js", `(?i)\bnode\.?js\b`),
	skill("React", `\bReact(\.js|JS)?\b|(?i)\breactjs\b`),
	skill("React Native", `(?i)\breact native\b`),
	skill("Vue", `(?i)\bvue(\.js|js)?\b`),
	skill("Angular", `(?i)\bangular\b`),
	skill("Next.js", `(?i)\bnext\.?js\b`),
	skill("Swift", `\bSwift\b`),
	skill("iOS", `(?i)\bios\b`),
	skill("Android", `(?i)\bandroid\b`),
	skill("Flutter", `(?i)\bflutter\b`),
	skill("SQL", `(?i)\bsql\b`),
	skill("PostgreSQL", `(?i)\bpostgres(ql)?\b`),
	skill("MySQL", `(?i)\bmysql\b`),
	skill("MongoDB", `(?i)\bmongo(db)?\b`),
	skill("Redis", `(?i)\bredis\b`),
	skill("Elasticsearch", `(?i)\belastic ?search\b`),
	skill("Kafka", `(?i)\bkafka\b`),
	skill("RabbitMQ", `(?i)\brabbitmq\b`),
	skill("GraphQL", `(?i)\bgraphql\b`),
	skill("gRPC", `(?i)\bgrpc\b`),
	skill("REST", `\bREST\b|(?i)\brestful\b`),
	skill("AWS", `(?i)\baws\b|(?i)\bamazon web services\b`),
	skill("GCP", `(?i)\bgcp\b|(?i)\bgoogle cloud\b`),
	skill("Azure", `(?i)\bazure\b`),
	skill("Docker", `(?i)\bdocker\b`),
	skill("Kubernetes", `(?i)\bkubernetes\b|(?i)\bk8s\b`),
	skill("Terraform", `(?i)\bterraform\b`),
	skill("Linux", `(?i)\blinux\b`),
	skill("CI/CD", `(?i)\bci/cd\b`),
	skill("Git", `(?i)\bgit\b`),
	skill("HTML", `(?i)\bhtml5?\b`),
	skill("CSS", `(?i)\bcss3?\b`),
	skill("Tailwind", `(?i)\btailwind\b`),
	skill("Figma", `(?i)\bfigma\b`),
	skill("Machine Learning", `(?i)\bmachine learning\b`),
	skill("PyTorch", `(?i)\bpytorch\b`),
	skill("TensorFlow", `(?i)\btensorflow\b`),
	skill("Spark", `\bSpark\b`),
	skill("Airflow", `(?i)\bairflow\b`),
	skill("dbt", `(?i)\bdbt\b`),
	skill("Snowflake", `(?i)\bsnowflake\b`),
	skill("Salesforce", `(?i)\bsalesforce\b`),
}

// extractSkills returns the dictionary skills mentioned in any of texts,
// deduplicated and sorted.
func extractSkills(texts ...string) []string {
	var found []string
	for _, text := range texts {
		for _, s := range skillDictionary {
			if s.re.MatchString(text) {
				found = append(found, s.name)
			}
		}
	}
	found = lo.Uniq(found)
	slices.Sort(found)
	return found
}
