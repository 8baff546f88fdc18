package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/seed"
	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机班组, 2: 插入随机员工, 3: 插入随机需求模板, 4: 导入真实名单)")
	flag.IntVar(&n, "n", 0, "要插入的记录数量，0 表示使用配置中的默认值")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			n = cfg.Seed.TeamCount
		}

		cnt := n
		for i := 0; i < n; i++ {
			team := utils.GenerateRandomTeam(i)
			if err := repo.CreateTeam(team); err != nil {
				slog.Error("无法插入班组", slog.String("error", err.Error()))
				continue
			}

			cnt--
		}

		slog.Info("插入班组成功", slog.Int("count", n-cnt))
	case 2:
		if n <= 0 {
			n = cfg.Seed.EmployeeCount
		}

		// 先获取所有班组，随机员工会被分配到其中一个班组
		teams, err := repo.GetAllTeams()
		if err != nil {
			slog.Error("无法获取所有班组", slog.String("error", err.Error()))
			return
		}
		if len(teams) == 0 {
			slog.Error("还没有任何班组，请先插入班组")
			return
		}

		// 记录每个班组中已经生成的高级员工，新手会从中随机挑选导师
		mentors := make(map[int64][]int64)

		cnt := n
		for i := 0; i < n; i++ {
			team := teams[rand.Intn(len(teams))]
			emp := utils.GenerateRandomEmployee(cfg.Email.UserDomain, team)

			if emp.Level <= domain.LevelJunior && len(mentors[team.ID]) > 0 {
				mentorID := mentors[team.ID][rand.Intn(len(mentors[team.ID]))]
				emp.MentorID = &mentorID
			}

			if err := repo.CreateEmployee(emp); err != nil {
				slog.Error("无法插入员工", slog.String("error", err.Error()))
				continue
			}

			if emp.Level >= domain.LevelSenior {
				mentors[team.ID] = append(mentors[team.ID], emp.ID)
			}

			cnt--
		}

		slog.Info("插入员工成功", slog.Int("count", n-cnt))
	case 3:
		if n <= 0 {
			n = 1
		}

		cnt := n
		for i := 0; i < n; i++ {
			template := utils.GenerateRandomCoverageTemplate()
			if err := repo.CreateCoverageTemplate(template); err != nil {
				slog.Error("无法插入需求模板", slog.String("error", err.Error()))
				continue
			}

			cnt--
		}

		slog.Info("插入需求模板成功", slog.Int("count", n-cnt))
	case 4:
		seed.SeedRoster(repo)
	default:
		slog.Error("指定的操作非法")
	}
}
