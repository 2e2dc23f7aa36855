package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/config"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/repository"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/seed"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// 填充数据时不发送邮件，只打印日志
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) SendDeliveryConfirmation(ctx context.Context, address string, date string, timeSlot domain.TimeWindow) error {
	n.logger.Debug("跳过配送确认邮件", "address", address, "date", date, "timeSlot", timeSlot)
	return nil
}

func (n logNotifier) SendDeliveryStatusUpdate(ctx context.Context, address string, status domain.DeliveryStatus, date string, timeSlot domain.TimeWindow) error {
	n.logger.Debug("跳过配送状态邮件", "address", address, "status", status, "date", date, "timeSlot", timeSlot)
	return nil
}

func main() {
	var op int
	var n int
	var file string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机订阅用户, 2: 插入随机配送, 3: 插入随机周期配送, 4: 从 csv 导入订阅用户)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&file, "file", "internal/seed/data/subscribers.csv", "要导入的 csv 文件")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	location, err := time.LoadLocation(cfg.Delivery.TimeZone)
	if err != nil {
		logger.Error("无法加载时区", "timezone", cfg.Delivery.TimeZone, "error", err)
		return
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

	if err := repository.Migrate(context.Background(), dbpool); err != nil {
		logger.Error("数据库迁移失败", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	parameters := &scheduler.Parameters{
		SlotCapacity:          cfg.Delivery.SlotCapacity,
		RecurrenceHorizonDays: cfg.Delivery.RecurrenceHorizonDays,
		NotesMaxLength:        cfg.Delivery.NotesMaxLength,
		Location:              location,
		StrictTransitions:     cfg.Delivery.StrictStatusTransitions,
		ExpansionLockTTL:      time.Duration(cfg.Delivery.ExpansionLockTTL) * time.Second,
	}
	s, err := scheduler.New(parameters, repo, logNotifier{logger: logger}, scheduler.WithLogger(logger))
	if err != nil {
		logger.Error("无法创建 scheduler", "error", err)
		return
	}

	bg := context.Background()

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的用户数量")
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			profile := utils.GenerateRandomProfile(cfg.Seed.EmailDomain)
			sub := &domain.Subscription{Status: "active"}
			if err := repo.CreateSubscriber(bg, profile, sub, domain.DefaultDeliveryPreferences()); err != nil {
				slog.Error("无法插入订阅用户", slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("插入订阅用户成功", slog.Int("count", cnt))
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的配送数量")
			return
		}

		ids := activeSubscriptions(bg, repo)
		if len(ids) == 0 {
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			id := ids[rand.Intn(len(ids))]
			date := utils.GenerateRandomDeliveryDate(time.Now().In(location), 30)

			if _, err := s.Schedule(bg, id, date, utils.GenerateRandomTimeWindow(), ""); err != nil {
				slog.Error("无法插入配送", slog.String("subscriptionID", id.String()), slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("插入配送成功", slog.Int("count", cnt))
	case 3:
		if n <= 0 {
			slog.Error("请输入合法的周期配送数量")
			return
		}

		ids := activeSubscriptions(bg, repo)
		if len(ids) == 0 {
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			id := ids[rand.Intn(len(ids))]
			input := scheduler.PatternInput{
				Frequency:         string(utils.GenerateRandomFrequency()),
				DaysOfWeek:        utils.GenerateRandomDaysOfWeek(),
				PreferredTimeSlot: string(utils.GenerateRandomTimeWindow()),
			}

			pattern, report, err := s.SetupRecurring(bg, id, input)
			if err != nil {
				slog.Error("无法插入周期配送", slog.String("subscriptionID", id.String()), slog.String("error", err.Error()))
				continue
			}

			slog.Info("插入周期配送",
				slog.String("patternID", pattern.ID.String()),
				slog.Int("scheduled", report.Count(domain.ExpansionScheduled)),
				slog.Int("failed", report.Count(domain.ExpansionFailed)),
			)
			cnt++
		}

		slog.Info("插入周期配送成功", slog.Int("count", cnt))
	case 4:
		f, err := os.Open(file)
		if err != nil {
			slog.Error("无法打开文件", slog.String("file", file), slog.String("error", err.Error()))
			return
		}
		defer f.Close()

		cnt, err := seed.ImportSubscribers(bg, f, repo, s)
		if err != nil {
			slog.Error("导入订阅用户失败", slog.String("error", err.Error()))
			return
		}

		slog.Info("导入订阅用户成功", slog.Int("count", cnt))
	default:
		slog.Error("指定的操作非法")
	}
}

func activeSubscriptions(ctx context.Context, repo *repository.Repository) []uuid.UUID {
	ids, err := repo.ListActiveSubscriptionIDs(ctx)
	if err != nil {
		slog.Error("无法获取订阅列表", slog.String("error", err.Error()))
		return nil
	}
	if len(ids) == 0 {
		slog.Error("没有可用的订阅，请先插入订阅用户")
	}
	return ids
}
