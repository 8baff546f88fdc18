package utils

import (
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

var letters = []rune("abcdefghijklmnopqrstuvwxyz")

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

var teamNames = []string{
	"网络值班组", "机房值班组", "前台值班组", "系统值班组", "外勤值班组", "安保值班组",
}

// GenerateRandomTeam 生成第 i 个班组，预设名称用完后追加随机后缀避免重名
func GenerateRandomTeam(i int) *domain.Team {
	if i < len(teamNames) {
		return &domain.Team{Name: teamNames[i]}
	}
	return &domain.Team{Name: "值班组" + GenerateRandomID(2, 3)}
}

// 经验等级按新手多专家少的比例生成
func GenerateRandomLevel() domain.Level {
	switch r := rand.Intn(10); {
	case r < 1:
		return domain.LevelTrainee
	case r < 4:
		return domain.LevelJunior
	case r < 7:
		return domain.LevelIntermediate
	case r < 9:
		return domain.LevelSenior
	default:
		return domain.LevelExpert
	}
}

var certificationPool = []string{"急救证", "消防培训", "电工证", "特种设备操作证"}

func GenerateRandomCertifications() []string {
	certifications := make([]string, 0)
	for _, cert := range certificationPool {
		if rand.Intn(4) == 0 {
			certifications = append(certifications, cert)
		}
	}
	return certifications
}

// GenerateRandomEmployee 生成一名随机员工，导师关系由调用方在生成完名单后再建立
func GenerateRandomEmployee(emailDomainName string, team *domain.Team) *domain.Employee {
	name := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(name)

	emp := &domain.Employee{
		Name:                 name,
		Username:             username,
		Email:                username + "@" + emailDomainName,
		Level:                GenerateRandomLevel(),
		TeamID:               team.ID,
		TeamName:             team.Name,
		ShiftTypePreferences: make(map[domain.ShiftType]int32),
		WeekdayPreferences:   make(map[time.Weekday]int32),
		Certifications:       GenerateRandomCertifications(),
		IsActive:             rand.Intn(20) != 0,
	}

	// 偏好只对部分班次和星期显式给出，其余留空由引擎按中间值处理
	for _, shiftType := range domain.AllShiftTypes {
		if rand.Intn(2) == 0 {
			emp.ShiftTypePreferences[shiftType] = int32(rand.Intn(10) + 1)
		}
	}
	for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
		if rand.Intn(3) == 0 {
			emp.WeekdayPreferences[weekday] = int32(rand.Intn(10) + 1)
		}
	}

	if rand.Intn(7) == 0 {
		emp.NoNightShifts = true
	}
	if rand.Intn(5) == 0 {
		maxHours := int32(40)
		emp.MaxWeeklyHours = &maxHours
	}

	return emp
}

// GenerateRandomCoverageTemplate 生成一份覆盖早晚夜三种班次的需求模板
func GenerateRandomCoverageTemplate() *domain.CoverageTemplate {
	template := &domain.CoverageTemplate{
		Name:        "需求模板" + GenerateRandomID(3, 3),
		Description: "需求模板描述" + GenerateRandomID(20, 10),
		Rules:       make([]domain.CoverageTemplateRule, 0, len(domain.AllShiftTypes)),
	}

	for _, shiftType := range domain.AllShiftTypes {
		weekdayCount := int32(rand.Intn(3) + 2)
		rule := domain.CoverageTemplateRule{
			ShiftType:    shiftType,
			WeekdayCount: weekdayCount,
			// 周末人流少，需求人数略低
			WeekendCount: weekdayCount - int32(rand.Intn(2)),
			MinLevel:     domain.LevelTrainee,
		}
		// 夜班至少要有一名中级以上的员工兜底
		if shiftType == domain.ShiftNight {
			rule.WeekdayCount = 2
			rule.WeekendCount = 1
			rule.MinLevel = domain.LevelIntermediate
		}
		template.Rules = append(template.Rules, rule)
	}

	return template
}
