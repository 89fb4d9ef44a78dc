package service

import (
	"context"
	"fmt"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/booking"
	"fueldelivery/internal/model"
	"fueldelivery/internal/pricing"
	"fueldelivery/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, actor Actor) (model.StatisticsResponse, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo}
}

// GetStatistics counts bookings per status and sums revenue and liters over delivered bookings.
// Revenue is the stored quote; liters use the governing quantity of each booking.
func (s *statisticsService) GetStatistics(ctx context.Context, actor Actor) (model.StatisticsResponse, error) {
	if !actor.IsAdmin() {
		return model.StatisticsResponse{}, fmt.Errorf("%w: statistics are restricted to administrators", apperror.ErrForbidden)
	}

	var (
		res       model.StatisticsResponse
		counts    []repository.StatusCount
		delivered []model.Booking
	)

	// The three aggregates are independent reads.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.repo.CountBookingsByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		res.TotalCustomers, err = s.repo.CountUsersByRole(gctx, model.RoleCustomer)
		return err
	})
	g.Go(func() error {
		var err error
		delivered, err = s.repo.BookingsWithStatus(gctx, model.StatusDelivered)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.StatisticsResponse{}, err
	}

	for _, c := range counts {
		res.TotalBookings += c.Count
		switch c.Status {
		case model.StatusPending:
			res.PendingBookings = c.Count
		case model.StatusDelivered:
			res.CompletedBookings = c.Count
		}
	}

	revenue, liters := decimal.Zero, decimal.Zero
	for i := range delivered {
		revenue = revenue.Add(delivered[i].TotalPrice)
		q, _ := booking.GoverningQuantity(&delivered[i])
		liters = liters.Add(q)
	}
	res.TotalRevenue = pricing.RoundMoney(revenue).StringFixed(pricing.MoneyPlaces)
	res.TotalLitersDelivered = liters.StringFixed(2)

	return res, nil
}
