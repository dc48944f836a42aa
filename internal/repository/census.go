package repository

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/model"
)

// SourceCensusTable 数据来源标签
const SourceCensusTable = "postgres:" + TableCensus

// CensusRepository 普查仓储
//
// 表结构：business_line, provider_id, facility_id, month (YYYY-MM), patients
type CensusRepository struct {
	db      DB
	dialect goqu.DialectWrapper
}

// NewCensusRepository 创建普查仓储
func NewCensusRepository(db DB) *CensusRepository {
	return &CensusRepository{db: db, dialect: dialect()}
}

type censusKey struct {
	provider string
	facility string
}

// LoadCensus 加载一个业务线的普查快照
func (r *CensusRepository) LoadCensus(ctx context.Context, businessLine string) (*model.Census, error) {
	query, args, err := r.dialect.
		Select("provider_id", "facility_id", "month", "patients").
		From(TableCensus).
		Where(goqu.Ex{"business_line": businessLine}).
		Order(goqu.I("provider_id").Asc(), goqu.I("facility_id").Asc(), goqu.I("month").Asc()).
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "构建普查查询失败")
	}

	census := &model.Census{BusinessLine: businessLine, Source: SourceCensusTable}
	index := make(map[censusKey]int)
	err = queryAll(ctx, r.db, query, args, func(s Scanner) error {
		var (
			key      censusKey
			month    string
			patients float64
		)
		if err := s.Scan(&key.provider, &key.facility, &month, &patients); err != nil {
			return err
		}
		i, ok := index[key]
		if !ok {
			i = len(census.Rows)
			index[key] = i
			census.Rows = append(census.Rows, model.CensusRow{
				BusinessLine: businessLine,
				ProviderID:   key.provider,
				FacilityID:   key.facility,
				Monthly:      make(map[string]float64),
			})
		}
		census.Rows[i].Monthly[month] += patients
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询普查数据失败")
	}
	if len(census.Rows) == 0 {
		return nil, errors.NotFound("census", businessLine).
			WithDetails(fmt.Sprintf("表 %s 中没有业务线 %q 的数据", TableCensus, businessLine))
	}
	return census, nil
}
