package normalize

import (
	"github.com/google/uuid"

	"github.com/amishk599/remoteboard/internal/model"
)

// jobNamespace scopes the name-based job ids. Changing it re-keys every job.
var jobNamespace = uuid.MustParse("3f6c9a52-8d1e-4b7a-9c25-61e0d4a8b7f3")

// JobID derives the stable id of a job from its ATS type and native id.
// The same pair always yields the same id, across runs and processes.
func JobID(sourceType model.SourceType, nativeID string) string {
	return uuid.NewSHA1(jobNamespace, []byte(string(sourceType)+":"+nativeID)).String()
}
