package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trisense-monitor/internal/config"
	"trisense-monitor/internal/models"
	"trisense-monitor/pkg/logger"
	redispkg "trisense-monitor/pkg/redis"
)

// simPatient 模拟患者及其体征轨迹
type simPatient struct {
	patientID string
	pattern   string // stable / deteriorating / sepsis
	step      int
	total     int
	rng       *rand.Rand
}

func main() {
	interval := flag.Duration("interval", 2*time.Second, "时间间隔（每个患者一条读数）")
	total := flag.Int("steps", 200, "每条轨迹的读数总量（之后循环）")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "vitalsim")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	redisClient := redispkg.NewRedisClient(&cfg.Redis)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redispkg.Ping(ctx, redisClient); err != nil {
		log.Fatal("Failed to ping redis", zap.Error(err))
	}

	patients := []*simPatient{
		{patientID: "PAT-001", pattern: "stable", total: *total, rng: rand.New(rand.NewSource(1))},
		{patientID: "PAT-002", pattern: "deteriorating", total: *total, rng: rand.New(rand.NewSource(2))},
		{patientID: "PAT-003", pattern: "sepsis", total: *total, rng: rand.New(rand.NewSource(3))},
	}

	log.Info("Vital sign simulator started",
		zap.String("stream", cfg.Monitor.Cache.VitalsStream),
		zap.Duration("interval", *interval),
		zap.Int("patients", len(patients)),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigChan:
			log.Info("Received signal, stopping simulator",
				zap.String("signal", sig.String()),
			)
			return
		case <-ticker.C:
			for _, p := range patients {
				reading := models.VitalReading{
					PatientID: p.patientID,
					Timestamp: time.Now().UTC(),
					Vitals:    p.next(),
				}
				if _, err := redispkg.PublishJSONToStream(ctx, redisClient, cfg.Monitor.Cache.VitalsStream, reading); err != nil {
					log.Error("Failed to publish reading",
						zap.String("patient_id", p.patientID),
						zap.Error(err),
					)
				}
			}
		}
	}
}

// next 产生轨迹上的下一条读数
func (p *simPatient) next() models.VitalSigns {
	step := p.step % p.total
	p.step++

	switch p.pattern {
	case "deteriorating":
		return p.deteriorating(step)
	case "sepsis":
		return p.sepsis(step)
	default:
		return p.stable()
	}
}

// stable 稳定患者：基线附近的高斯抖动
func (p *simPatient) stable() models.VitalSigns {
	return models.VitalSigns{
		HeartRate:       75 + p.rng.NormFloat64()*3,
		SystolicBP:      120 + p.rng.NormFloat64()*5,
		DiastolicBP:     75 + p.rng.NormFloat64()*3,
		RespiratoryRate: 16 + p.rng.NormFloat64()*1.5,
		SpO2:            math.Min(100, 98+p.rng.NormFloat64()*1),
		Temperature:     36.8 + p.rng.NormFloat64()*0.2,
	}
}

// deteriorating 渐进恶化：心率上升、血压下降、血氧下滑
func (p *simPatient) deteriorating(step int) models.VitalSigns {
	progress := float64(step) / float64(p.total)
	return models.VitalSigns{
		HeartRate:       75 + progress*35 + p.rng.NormFloat64()*4,
		SystolicBP:      math.Max(70, 120-progress*25+p.rng.NormFloat64()*5),
		DiastolicBP:     math.Max(50, 75-progress*15+p.rng.NormFloat64()*3),
		RespiratoryRate: 16 + progress*10 + p.rng.NormFloat64()*2,
		SpO2:            math.Min(100, math.Max(85, 98-progress*8+p.rng.NormFloat64()*1.5)),
		Temperature:     36.8 + progress*1.5 + p.rng.NormFloat64()*0.3,
	}
}

// sepsis 前三分之一稳定，之后快速进入脓毒症样轨迹
func (p *simPatient) sepsis(step int) models.VitalSigns {
	sepsisStart := p.total / 3
	if step < sepsisStart {
		return p.stable()
	}
	progress := float64(step-sepsisStart) / float64(p.total-sepsisStart)
	return models.VitalSigns{
		HeartRate:       math.Min(150, 80+progress*50+p.rng.NormFloat64()*5),
		SystolicBP:      math.Max(75, 115-progress*35+p.rng.NormFloat64()*6),
		DiastolicBP:     math.Max(45, 70-progress*20+p.rng.NormFloat64()*4),
		RespiratoryRate: math.Min(35, 18+progress*15+p.rng.NormFloat64()*2),
		SpO2:            math.Min(100, math.Max(82, 97-progress*12+p.rng.NormFloat64()*2)),
		Temperature:     37.0 + progress*2.5 + p.rng.NormFloat64()*0.3,
	}
}
