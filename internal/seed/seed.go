package seed

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/repository"
)

// 名单文件中班次偏好列的表头，取值 1-10，留空表示没有明确偏好
var preferenceHeaderMap = map[string]domain.ShiftType{
	"早班偏好": domain.ShiftDay,
	"晚班偏好": domain.ShiftEvening,
	"夜班偏好": domain.ShiftNight,
}

var requiredHeaders = []string{"姓名", "用户名", "邮箱", "等级", "班组"}

// SeedRoster 从名单文件导入员工和班组。
// 名单中已经存在的员工会被跳过，导师列引用的用户名必须先于被带教的员工出现或已在库中
func SeedRoster(r *repository.Repository) {
	file, err := os.Open("./internal/seed/data/roster.csv")
	if err != nil {
		slog.Error("打开文件失败", "error", err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		slog.Error("读取表头失败", "error", err)
		return
	}

	for _, header := range requiredHeaders {
		if !slices.Contains(headers, header) {
			slog.Error("没有找到信息列", "header", header)
			return
		}
	}

	// 读取数据
	var records []map[string]string
	for {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			slog.Error("读取文件失败", "error", err)
			return
		}

		record := make(map[string]string)
		for i, value := range row {
			record[headers[i]] = value
		}
		records = append(records, record)
	}

	teamIDs := make(map[string]int64)
	employeeIDs := make(map[string]int64)

	count := 0
	for _, record := range records {
		username := record["用户名"]
		if username == "" {
			slog.Error("没有找到用户名", "record", record)
			continue
		}

		// 已经在库中的员工跳过，让导入可以重复执行
		if existing, err := r.GetEmployeeByUsername(username); err == nil {
			employeeIDs[username] = existing.ID
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("查询员工失败", "username", username, "error", err)
			continue
		}

		teamID, err := resolveTeam(r, teamIDs, record["班组"])
		if err != nil {
			slog.Error("解析班组失败", "username", username, "error", err)
			continue
		}

		level, err := strconv.Atoi(record["等级"])
		if err != nil || !domain.Level(level).IsValid() {
			slog.Error("非法的经验等级", "username", username, "level", record["等级"])
			continue
		}

		emp := &domain.Employee{
			Name:                 record["姓名"],
			Username:             username,
			Email:                record["邮箱"],
			Level:                domain.Level(level),
			TeamID:               teamID,
			ShiftTypePreferences: make(map[domain.ShiftType]int32),
			WeekdayPreferences:   make(map[time.Weekday]int32),
			Certifications:       make([]string, 0),
			NoNightShifts:        record["不上夜班"] == "是",
			IsActive:             record["离职"] != "是",
		}

		if raw := record["每周最大工时"]; raw != "" {
			hours, err := strconv.Atoi(raw)
			if err != nil {
				slog.Error("非法的每周最大工时", "username", username, "hours", raw)
				continue
			}
			maxHours := int32(hours)
			emp.MaxWeeklyHours = &maxHours
		}

		for header, shiftType := range preferenceHeaderMap {
			raw := record[header]
			if raw == "" {
				continue
			}
			weight, err := strconv.Atoi(raw)
			if err != nil || weight < 1 || weight > 10 {
				slog.Error("非法的班次偏好", "username", username, "header", header, "weight", raw)
				continue
			}
			emp.ShiftTypePreferences[shiftType] = int32(weight)
		}

		for _, cert := range strings.Split(record["认证"], "；") {
			if cert == "" {
				continue
			}
			emp.Certifications = append(emp.Certifications, cert)
		}

		if mentorUsername := record["导师"]; mentorUsername != "" {
			mentorID, ok := employeeIDs[mentorUsername]
			if !ok {
				mentor, err := r.GetEmployeeByUsername(mentorUsername)
				if err != nil {
					slog.Error("导师不存在，跳过导师关系", "username", username, "mentor", mentorUsername)
				} else {
					mentorID = mentor.ID
					ok = true
				}
			}
			if ok {
				emp.MentorID = &mentorID
			}
		}

		if err := r.CreateEmployee(emp); err != nil {
			slog.Error("插入员工失败", "username", username, "error", err)
			continue
		}
		employeeIDs[username] = emp.ID
		count++
	}

	slog.Info("导入名单完成", "count", count)
}

// resolveTeam 按名称查找班组，不存在时创建
func resolveTeam(r *repository.Repository, cache map[string]int64, name string) (int64, error) {
	if name == "" {
		return 0, errors.New("班组名称为空")
	}
	if id, ok := cache[name]; ok {
		return id, nil
	}

	id, err := r.GetTeamIDByName(name)
	if err == nil {
		cache[name] = id
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	team := &domain.Team{Name: name}
	if err := r.CreateTeam(team); err != nil {
		return 0, err
	}
	cache[name] = team.ID
	return team.ID, nil
}
