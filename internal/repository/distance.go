package repository

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/paiban/visitplan/pkg/distance"
	"github.com/paiban/visitplan/pkg/errors"
)

// SourceDurationTables 数据来源标签
const SourceDurationTables = "postgres:durations"

// DistanceRepository 通勤时长仓储，实现 distance.Source
//
// provider_facility_durations: business_line, provider_id, facility_id, hours
// facility_facility_durations: business_line, from_facility_id, to_facility_id, hours
type DistanceRepository struct {
	db      DB
	dialect goqu.DialectWrapper
}

// NewDistanceRepository 创建通勤时长仓储
func NewDistanceRepository(db DB) *DistanceRepository {
	return &DistanceRepository{db: db, dialect: dialect()}
}

// Load 加载业务线的通勤矩阵
func (r *DistanceRepository) Load(ctx context.Context, businessLine string) (*distance.Matrix, error) {
	home, err := r.table(ctx, TableProviderDurations, "provider_id", "facility_id", businessLine)
	if err != nil {
		return nil, err
	}
	between, err := r.table(ctx, TableFacilityDurations, "from_facility_id", "to_facility_id", businessLine)
	if err != nil {
		return nil, err
	}
	if len(home) == 0 && len(between) == 0 {
		return nil, errors.NotFound("distance matrix", businessLine)
	}
	return &distance.Matrix{
		BusinessLine:       businessLine,
		Source:             SourceDurationTables,
		HomeToFacility:     home,
		FacilityToFacility: between,
	}, nil
}

func (r *DistanceRepository) table(ctx context.Context, table, fromCol, toCol, businessLine string) (map[string]map[string]float64, error) {
	query, args, err := r.dialect.
		Select(fromCol, toCol, "hours").
		From(table).
		Where(goqu.Ex{"business_line": businessLine}).
		Order(goqu.I(fromCol).Asc(), goqu.I(toCol).Asc()).
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "构建通勤时长查询失败")
	}

	out := make(map[string]map[string]float64)
	err = queryAll(ctx, r.db, query, args, func(s Scanner) error {
		var from, to string
		var hours float64
		if err := s.Scan(&from, &to, &hours); err != nil {
			return err
		}
		row, ok := out[from]
		if !ok {
			row = make(map[string]float64)
			out[from] = row
		}
		row[to] = hours
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询通勤时长失败").WithField("table", table)
	}
	return out, nil
}
