package orders

import (
	"context"
	"fmt"
	"time"
)

// Overview aggregates the append-only order history.
type Overview struct {
	TotalOrders     int    `json:"total_orders"`
	TotalCoffees    int    `json:"total_coffees"`
	BusiestDay      string `json:"busiest_day,omitempty"`
	OrdersThisWeek  int    `json:"orders_this_week"`
	OrdersThisMonth int    `json:"orders_this_month"`
}

// DrinkStat is one row of the drink leaderboard.
type DrinkStat struct {
	DrinkName string `json:"drink_name"`
	Count     int    `json:"count"`
}

// ColleagueStat summarizes one colleague's ordering history.
type ColleagueStat struct {
	ColleagueName  string `json:"colleague_name"`
	OrderCount     int    `json:"order_count"`
	FavouriteDrink string `json:"favourite_drink,omitempty"`
}

var weekdayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// StatsOverview computes order totals, optionally windowed to the last N days.
func (s *Service) StatsOverview(ctx context.Context, days int) (Overview, error) {
	now := s.clock().UTC()
	overview := Overview{}

	orderQuery := s.db.WithContext(ctx).Model(&Order{})
	itemQuery := s.db.WithContext(ctx).Model(&OrderItem{})
	if days > 0 {
		since := now.AddDate(0, 0, -days)
		orderQuery = orderQuery.Where("created_at >= ?", since)
		itemQuery = itemQuery.Where("created_at >= ?", since)
	}

	var totalOrders int64
	if err := orderQuery.Count(&totalOrders).Error; err != nil {
		return Overview{}, fmt.Errorf("orders: count orders: %w", err)
	}
	overview.TotalOrders = int(totalOrders)

	var totalCoffees int64
	if err := itemQuery.Count(&totalCoffees).Error; err != nil {
		return Overview{}, fmt.Errorf("orders: count coffees: %w", err)
	}
	overview.TotalCoffees = int(totalCoffees)

	var weekCount int64
	err := s.db.WithContext(ctx).Model(&Order{}).
		Where("created_at >= ?", now.Add(-7*24*time.Hour)).
		Count(&weekCount).Error
	if err != nil {
		return Overview{}, fmt.Errorf("orders: count week: %w", err)
	}
	overview.OrdersThisWeek = int(weekCount)

	var monthCount int64
	err = s.db.WithContext(ctx).Model(&Order{}).
		Where("created_at >= ?", now.Add(-30*24*time.Hour)).
		Count(&monthCount).Error
	if err != nil {
		return Overview{}, fmt.Errorf("orders: count month: %w", err)
	}
	overview.OrdersThisMonth = int(monthCount)

	type dowRow struct {
		Dow string `gorm:"column:dow"`
		Cnt int    `gorm:"column:cnt"`
	}
	var busiest []dowRow
	err = s.db.WithContext(ctx).Model(&Order{}).
		Select("strftime('%w', created_at) AS dow, COUNT(*) AS cnt").
		Group("dow").
		Order("cnt DESC").
		Limit(1).
		Scan(&busiest).Error
	if err != nil {
		return Overview{}, fmt.Errorf("orders: busiest day: %w", err)
	}
	if len(busiest) > 0 && len(busiest[0].Dow) == 1 {
		index := int(busiest[0].Dow[0] - '0')
		if index >= 0 && index < len(weekdayNames) {
			overview.BusiestDay = weekdayNames[index]
		}
	}

	return overview, nil
}

// StatsDrinks returns the most-ordered drinks by snapshot name.
func (s *Service) StatsDrinks(ctx context.Context, days, limit int) ([]DrinkStat, error) {
	if limit <= 0 {
		limit = 10
	}
	query := s.db.WithContext(ctx).Model(&OrderItem{}).
		Select("drink_type_name AS drink_name, COUNT(*) AS count")
	if days > 0 {
		query = query.Where("created_at >= ?", s.clock().UTC().AddDate(0, 0, -days))
	}
	var stats []DrinkStat
	err := query.Group("drink_type_name").
		Order("count DESC, drink_name").
		Limit(limit).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("orders: drink stats: %w", err)
	}
	if stats == nil {
		stats = []DrinkStat{}
	}
	return stats, nil
}

// StatsColleagues returns per-colleague coffee counts with each colleague's
// most-ordered drink. Names come from the order snapshots, so renamed or
// deactivated colleagues keep their history.
func (s *Service) StatsColleagues(ctx context.Context, days int) ([]ColleagueStat, error) {
	query := s.db.WithContext(ctx).Model(&OrderItem{}).
		Select("colleague_name, COUNT(*) AS order_count")
	if days > 0 {
		query = query.Where("created_at >= ?", s.clock().UTC().AddDate(0, 0, -days))
	}
	var stats []ColleagueStat
	err := query.Group("colleague_name").
		Order("order_count DESC, colleague_name").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("orders: colleague stats: %w", err)
	}

	for index := range stats {
		var favourite []DrinkStat
		err := s.db.WithContext(ctx).Model(&OrderItem{}).
			Select("drink_type_name AS drink_name, COUNT(*) AS count").
			Where("colleague_name = ?", stats[index].ColleagueName).
			Group("drink_type_name").
			Order("count DESC, drink_name").
			Limit(1).
			Scan(&favourite).Error
		if err != nil {
			return nil, fmt.Errorf("orders: favourite drink: %w", err)
		}
		if len(favourite) > 0 {
			stats[index].FavouriteDrink = favourite[0].DrinkName
		}
	}
	if stats == nil {
		stats = []ColleagueStat{}
	}
	return stats, nil
}
