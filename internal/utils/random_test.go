package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

func TestGenerateRandomChineseName(t *testing.T) {
	for i := 0; i < 100; i++ {
		name := []rune(GenerateRandomChineseName())
		require.GreaterOrEqual(t, len(name), 2)
		require.LessOrEqual(t, len(name), 3)
	}
}

func TestGenerateUsernameFromChineseName(t *testing.T) {
	for i := 0; i < 100; i++ {
		username := GenerateUsernameFromChineseName("张伟")
		// 拼音前缀加 1 到 3 位数字
		require.Regexp(t, `^[a-z]+[0-9]{1,3}$`, username)
	}
}

func TestGenerateRandomID(t *testing.T) {
	id := GenerateRandomID(3, 4)
	require.Len(t, id, 7)
	require.Regexp(t, `^[a-z]{3}[0-9]{4}$`, id)
}

func TestGenerateRandomTeam(t *testing.T) {
	require.Equal(t, "网络值班组", GenerateRandomTeam(0).Name)

	// 预设名称用完后仍然要能生成不同的名字
	seen := make(map[string]bool)
	for i := 6; i < 12; i++ {
		team := GenerateRandomTeam(i)
		require.True(t, strings.HasPrefix(team.Name, "值班组"))
		seen[team.Name] = true
	}
	require.Greater(t, len(seen), 1)
}

func TestGenerateRandomLevel(t *testing.T) {
	for i := 0; i < 200; i++ {
		require.True(t, GenerateRandomLevel().IsValid())
	}
}

func TestGenerateRandomEmployee(t *testing.T) {
	team := &domain.Team{ID: 42, Name: "网络值班组"}

	for i := 0; i < 50; i++ {
		emp := GenerateRandomEmployee("example.com", team)

		require.NotEmpty(t, emp.Name)
		require.NotEmpty(t, emp.Username)
		require.Equal(t, emp.Username+"@example.com", emp.Email)
		require.True(t, emp.Level.IsValid())
		require.Equal(t, int64(42), emp.TeamID)
		require.Equal(t, "网络值班组", emp.TeamName)

		for _, score := range emp.ShiftTypePreferences {
			require.GreaterOrEqual(t, score, int32(1))
			require.LessOrEqual(t, score, int32(10))
		}
		for _, score := range emp.WeekdayPreferences {
			require.GreaterOrEqual(t, score, int32(1))
			require.LessOrEqual(t, score, int32(10))
		}
		if emp.MaxWeeklyHours != nil {
			require.Equal(t, int32(40), *emp.MaxWeeklyHours)
		}
	}
}

func TestGenerateRandomCoverageTemplate(t *testing.T) {
	for i := 0; i < 50; i++ {
		template := GenerateRandomCoverageTemplate()

		require.NotEmpty(t, template.Name)
		require.Len(t, template.Rules, 3)

		for _, rule := range template.Rules {
			require.True(t, rule.ShiftType.IsValid())
			require.Positive(t, rule.WeekdayCount)
			require.GreaterOrEqual(t, rule.WeekendCount, int32(0))
			require.LessOrEqual(t, rule.WeekendCount, rule.WeekdayCount)
			require.True(t, rule.MinLevel.IsValid())
		}

		// 夜班固定要求中级以上
		night := template.Rules[2]
		require.Equal(t, domain.ShiftNight, night.ShiftType)
		require.Equal(t, domain.LevelIntermediate, night.MinLevel)
	}
}
