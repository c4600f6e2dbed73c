package normalize

import (
	"regexp"
	"strings"

	"github.com/amishk599/remoteboard/internal/model"
)

func jobType(employmentType, title string) model.JobType {
	et := strings.ToLower(employmentType)
	et = strings.NewReplacer("-", "", "_", "", " ", "").Replace(et)
	switch {
	case strings.Contains(et, "intern"):
		return model.JobTypeInternship
	case strings.Contains(et, "contract"), strings.Contains(et, "freelance"):
		return model.JobTypeContract
	case strings.Contains(et, "temp"):
		return model.JobTypeTemporary
	case strings.Contains(et, "parttime"):
		return model.JobTypePartTime
	case strings.Contains(et, "fulltime"), strings.Contains(et, "permanent"):
		return model.JobTypeFullTime
	}

	t := strings.ToLower(title)
	switch {
	case internRegex.MatchString(t):
		return model.JobTypeInternship
	case strings.Contains(t, "contract"), strings.Contains(t, "freelance"):
		return model.JobTypeContract
	case strings.Contains(t, "part-time"), strings.Contains(t, "part time"):
		return model.JobTypePartTime
	}
	return model.JobTypeFullTime
}

var (
	internRegex = regexp.MustCompile(`\bintern(ship)?\b`)

	experienceRules = []struct {
		level model.ExperienceLevel
		re    *regexp.Regexp
	}{
		{model.ExperienceLead, regexp.MustCompile(`\b(lead|principal|staff|head of|director|vp|architect)\b`)},
		{model.ExperienceSenior, regexp.MustCompile(`\b(senior|sr\.?|iii|iv)\b`)},
		{model.ExperienceJunior, regexp.MustCompile(`\b(junior|jr\.?|associate)\b`)},
		{model.ExperienceEntry, regexp.MustCompile(`\b(intern(ship)?|entry[\s-]level|graduate|new grad|trainee|apprentice)\b`)},
	}
)

func experienceLevel(title string) model.ExperienceLevel {
	t := strings.ToLower(title)
	for _, r := range experienceRules {
		if r.re.MatchString(t) {
			return r.level
		}
	}
	return model.ExperienceMid
}

func workplaceType(hint string) model.WorkplaceType {
	switch hint {
	case model.WorkplaceHybrid:
		return model.WorkplaceTypeHybrid
	case model.WorkplaceOnSite:
		return model.WorkplaceTypeOnSite
	default:
		return model.WorkplaceTypeRemote
	}
}
