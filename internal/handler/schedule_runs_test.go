package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// newTestHandler 构造只带验证器的 Handler。
// 请求校验在触达数据库等外部依赖之前完成，这里验证的路径都不需要真实连接
func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	h, err := NewHandler(&config.Config{}, nil, nil, nil)
	require.NoError(t, err)
	return h
}

func postJSON(h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateScheduleRunValidation(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		desc string
		body string
		// wantMessage 为空时只检查请求被拒绝
		wantMessage  string
		wantContains string
	}{
		{
			desc: "malformed json",
			body: `{"name":`,
		},
		{
			desc:         "missing name",
			body:         `{"startDate":"2026-09-07","endDate":"2026-09-08","requirements":[{"date":"2026-09-07","shiftType":"day","requiredCount":1,"minLevel":1}]}`,
			wantContains: "必填",
		},
		{
			desc:        "end date before start date",
			body:        `{"name":"九月排班","startDate":"2026-09-08","endDate":"2026-09-07"}`,
			wantMessage: "结束日期不能早于开始日期",
		},
		{
			desc:        "template and inline requirements together",
			body:        `{"name":"九月排班","startDate":"2026-09-07","endDate":"2026-09-08","coverageTemplateID":1,"requirements":[{"date":"2026-09-07","shiftType":"day","requiredCount":1,"minLevel":1}]}`,
			wantMessage: "需求模板和逐日人力需求只能二选一",
		},
		{
			desc:        "neither template nor requirements",
			body:        `{"name":"九月排班","startDate":"2026-09-07","endDate":"2026-09-08"}`,
			wantMessage: "必须提供需求模板或逐日人力需求",
		},
		{
			desc:         "invalid shift type in requirements",
			body:         `{"name":"九月排班","startDate":"2026-09-07","endDate":"2026-09-08","requirements":[{"date":"2026-09-07","shiftType":"午夜班","requiredCount":1,"minLevel":1}]}`,
			wantContains: "必须是",
		},
		{
			desc:         "invalid strategy",
			body:         `{"name":"九月排班","startDate":"2026-09-07","endDate":"2026-09-08","requirements":[{"date":"2026-09-07","shiftType":"day","requiredCount":1,"minLevel":1}],"optimizationSettings":{"strategy":"quantum"}}`,
			wantContains: "必须是",
		},
		{
			desc:         "parallel restarts above cap",
			body:         `{"name":"九月排班","startDate":"2026-09-07","endDate":"2026-09-08","requirements":[{"date":"2026-09-07","shiftType":"day","requiredCount":1,"minLevel":1}],"optimizationSettings":{"parallelRestarts":9}}`,
			wantContains: "ParallelRestarts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			resp := decodeResponse(t, postJSON(h.CreateScheduleRun, "/schedule-runs", tt.body))

			require.False(t, resp.Success)
			require.NotEmpty(t, resp.Message)
			if tt.wantMessage != "" {
				require.Equal(t, tt.wantMessage, resp.Message)
			}
			if tt.wantContains != "" {
				require.Contains(t, resp.Message, tt.wantContains)
			}
		})
	}
}

func TestCreateCoverageTemplateValidation(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		desc string
		body string
	}{
		{
			desc: "missing rules",
			body: `{"name":"标准周"}`,
		},
		{
			desc: "empty rules",
			body: `{"name":"标准周","rules":[]}`,
		},
		{
			desc: "invalid shift type",
			body: `{"name":"标准周","rules":[{"shiftType":"midnight","weekdayCount":1,"weekendCount":0,"minLevel":1}]}`,
		},
		{
			desc: "min level out of range",
			body: `{"name":"标准周","rules":[{"shiftType":"day","weekdayCount":1,"weekendCount":0,"minLevel":9}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			resp := decodeResponse(t, postJSON(h.CreateCoverageTemplate, "/coverage-templates", tt.body))

			require.False(t, resp.Success)
			require.NotEmpty(t, resp.Message)
		})
	}
}

func TestExpandCoverageTemplatePreview(t *testing.T) {
	h := newTestHandler(t)

	template := &domain.CoverageTemplate{
		ID:   1,
		Name: "白班模板",
		Rules: []domain.CoverageTemplateRule{
			{ShiftType: domain.ShiftDay, WeekdayCount: 2, WeekendCount: 1, MinLevel: domain.LevelJunior},
		},
	}

	expand := func(query string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/coverage-templates/1/expand"+query, nil)
		r = r.WithContext(context.WithValue(r.Context(), CoverageTemplateCtx, template))
		w := httptest.NewRecorder()
		h.ExpandCoverageTemplate(w, r)
		return w
	}

	t.Run("expands over the requested range", func(t *testing.T) {
		w := expand("?startDate=2026-09-07&endDate=2026-09-13")

		var resp struct {
			Success bool                         `json:"success"`
			Message string                       `json:"message"`
			Data    []domain.CoverageRequirement `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		require.True(t, resp.Success)
		require.Len(t, resp.Data, 7, "单条规则每天展开一个槽位")
		require.True(t, resp.Data[0].Date.Equal(domain.NewDate(2026, 9, 7)))
		require.Equal(t, domain.ShiftDay, resp.Data[0].ShiftType)
		require.Equal(t, int32(2), resp.Data[0].RequiredCount)

		// 2026-09-12 是周六，取周末人数
		require.True(t, resp.Data[5].Date.Equal(domain.NewDate(2026, 9, 12)))
		require.Equal(t, int32(1), resp.Data[5].RequiredCount)
	})

	t.Run("rejects invalid start date", func(t *testing.T) {
		resp := decodeResponse(t, expand("?startDate=昨天&endDate=2026-09-13"))

		require.False(t, resp.Success)
		require.Equal(t, "开始日期无效", resp.Message)
	})

	t.Run("rejects reversed range", func(t *testing.T) {
		resp := decodeResponse(t, expand("?startDate=2026-09-13&endDate=2026-09-07"))

		require.False(t, resp.Success)
		require.Equal(t, "结束日期不能早于开始日期", resp.Message)
	})
}
