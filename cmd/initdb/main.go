package main

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/config"
	"github.com/qs3c/billing_go_server/internal/database"
	"github.com/qs3c/billing_go_server/internal/model"
)

// 基础资费计划目录
var defaultPlans = []model.TariffPlan{
	{PlanCode: "0000", Name: "默认计划", MonthlyUnits: 0, ChatLimit: 10, TemplateLimit: 5, Price: 0, IsActive: true},
	{PlanCode: "free", Name: "免费计划", MonthlyUnits: 10, ChatLimit: 10, TemplateLimit: 5, Price: 0, IsActive: true},
	{PlanCode: "base750", Name: "基础计划", MonthlyUnits: 750, ChatLimit: 500, TemplateLimit: 100, Price: 299, IsActive: true},
	{PlanCode: "pro1500", Name: "专业计划", MonthlyUnits: 1500, ChatLimit: 2000, TemplateLimit: 500, Price: 499, IsActive: true},
}

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migrated")

	// 幂等写入计划目录，已存在则跳过
	created := 0
	for _, plan := range defaultPlans {
		var existing model.TariffPlan
		err := db.Where("plan_code = ?", plan.PlanCode).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatalf("Failed to query tariff plan %s: %v", plan.PlanCode, err)
		}
		if err := db.Create(&plan).Error; err != nil {
			log.Fatalf("Failed to create tariff plan %s: %v", plan.PlanCode, err)
		}
		created++
	}

	log.Printf("Tariff plans seeded: %d created, %d total", created, len(defaultPlans))
}
