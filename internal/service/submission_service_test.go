package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmissionObjectKey(t *testing.T) {
	// GIVEN 同一份作业重复提交同名附件
	first := submissionObjectKey(42, "report.pdf")
	second := submissionObjectKey(42, "report.pdf")

	// THEN 对象名按作业分目录、保留扩展名，且两次提交互不覆盖
	require.True(t, strings.HasPrefix(first, "submissions/42/"))
	require.True(t, strings.HasSuffix(first, ".pdf"))
	require.NotEqual(t, first, second)
}

func TestSubmissionObjectKeyWithoutExtension(t *testing.T) {
	key := submissionObjectKey(7, "notes")

	require.True(t, strings.HasPrefix(key, "submissions/7/"))
	require.False(t, strings.Contains(key, "."))
}
