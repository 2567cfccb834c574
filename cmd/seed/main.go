package main

import (
	"context"
	"math/rand/v2"
	"os"
	"time"

	"slotbook/pkg/client"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
)

var doctors = []model.CreateDoctorRequest{
	{
		Name:           "Dr. Sarah Johnson",
		Specialization: "Cardiology",
		Bio:            "Board-certified cardiologist with 15+ years of experience in treating heart conditions and preventive cardiology.",
	},
	{
		Name:           "Dr. Michael Chen",
		Specialization: "Neurology",
		Bio:            "Expert neurologist specializing in migraine treatment, epilepsy, and neurodegenerative diseases.",
	},
	{
		Name:           "Dr. Emily Williams",
		Specialization: "Pediatrics",
		Bio:            "Compassionate pediatrician dedicated to providing comprehensive care for children from infancy through adolescence.",
	},
	{
		Name:           "Dr. James Rodriguez",
		Specialization: "Orthopedics",
		Bio:            "Orthopedic surgeon with expertise in sports medicine, joint replacement, and minimally invasive procedures.",
	},
	{
		Name:           "Dr. Priya Sharma",
		Specialization: "Dermatology",
		Bio:            "Dermatologist specializing in medical and cosmetic dermatology, skin cancer screening, and anti-aging treatments.",
	},
}

type clock struct{ hour, minute int }

// Half-hour starts from 9:00 to 17:00, skipping lunch.
var dayTimes = []clock{
	{9, 0}, {9, 30}, {10, 0}, {10, 30}, {11, 0}, {11, 30},
	{14, 0}, {14, 30}, {15, 0}, {15, 30}, {16, 0}, {16, 30}, {17, 0},
}

const (
	days          = 7
	minSlotsByDay = 3
	maxSlotsByDay = 5
)

// slotTimes picks 3 to 5 distinct times on each of the next seven days.
func slotTimes(now time.Time, rng *rand.Rand) []time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var out []time.Time
	for offset := 1; offset <= days; offset++ {
		day := today.AddDate(0, 0, offset)
		count := minSlotsByDay + rng.IntN(maxSlotsByDay-minSlotsByDay+1)
		for _, i := range rng.Perm(len(dayTimes))[:count] {
			t := dayTimes[i]
			out = append(out, day.Add(time.Duration(t.hour)*time.Hour+time.Duration(t.minute)*time.Minute))
		}
	}
	return out
}

func main() {
	log := logger.New(logger.Config{
		Level:   logger.INFO,
		Format:  logger.JSON,
		Service: "seed",
	})

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	api := client.NewSlotbookClient(baseURL)
	if err := api.WaitForHealthy(ctx, 30*time.Second); err != nil {
		log.Fatal("Service not healthy", "base_url", baseURL, "error", err)
	}

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	total := 0
	for _, req := range doctors {
		doctor, err := api.CreateDoctor(ctx, req)
		if err != nil {
			log.Fatal("Failed to create doctor", "name", req.Name, "error", err)
		}

		times := slotTimes(time.Now(), rng)
		for _, start := range times {
			if _, err := api.CreateSlot(ctx, doctor.ID, start); err != nil {
				log.Fatal("Failed to create slot", "doctor_id", doctor.ID, "start_time", start, "error", err)
			}
		}
		total += len(times)
		log.Info("Seeded doctor", "name", doctor.Name, "specialization", doctor.Specialization, "slots", len(times))
	}

	log.Info("Seed completed", "doctors", len(doctors), "slots", total)
}
