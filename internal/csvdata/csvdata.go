// Package csvdata 从 CSV 文件读取普查数据与通勤时长矩阵
//
// 目录结构：
//
//	{dir}/{census_file}
//	{dir}/distance_matrices/{业务线，空格替换为下划线}_pcp_facility_durations.csv
//	{dir}/distance_matrices/{业务线}_facility_facility_durations.csv
package csvdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/paiban/visitplan/pkg/distance"
	"github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/model"
)

// 普查 CSV 固定列
const (
	ColumnBusinessLine = "Business Line"
	ColumnProvider     = "Anonymized_PCP_UID"
	ColumnFacility     = "Anonymized_Facility_UID"
)

// SourceCSV 数据来源标签
const SourceCSV = "csv"

var monthColumn = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Store CSV 数据目录
type Store struct {
	dir        string
	censusFile string
}

// NewStore 创建 CSV 数据目录
func NewStore(dir, censusFile string) *Store {
	return &Store{dir: dir, censusFile: censusFile}
}

// MatrixFileNames 业务线对应的两个矩阵文件名
func MatrixFileNames(businessLine string) (home, between string) {
	clean := strings.ReplaceAll(businessLine, " ", "_")
	return clean + "_pcp_facility_durations.csv", clean + "_facility_facility_durations.csv"
}

// LoadCensus 读取一个业务线的普查行
func (s *Store) LoadCensus(ctx context.Context, businessLine string) (*model.Census, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, s.censusFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开普查文件失败: %w", err)
	}
	defer f.Close()

	census, err := ReadCensus(f, businessLine)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(census.Rows) == 0 {
		return nil, errors.NotFound("census", businessLine)
	}
	return census, nil
}

// Load 读取业务线的通勤矩阵，实现 distance.Source
func (s *Store) Load(ctx context.Context, businessLine string) (*distance.Matrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	homeName, betweenName := MatrixFileNames(businessLine)
	home, err := s.readMatrixFile(homeName)
	if err != nil {
		return nil, err
	}
	between, err := s.readMatrixFile(betweenName)
	if err != nil {
		return nil, err
	}
	return &distance.Matrix{
		BusinessLine:       businessLine,
		Source:             SourceCSV,
		HomeToFacility:     home,
		FacilityToFacility: between,
	}, nil
}

func (s *Store) readMatrixFile(name string) (map[string]map[string]float64, error) {
	path := filepath.Join(s.dir, "distance_matrices", name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开距离矩阵失败: %w", err)
	}
	defer f.Close()

	m, err := ReadMatrix(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ReadCensus 解析普查 CSV，只保留指定业务线的行
//
// 月份列以 YYYY-MM 为表头，空单元格跳过。
func ReadCensus(r io.Reader, businessLine string) (*model.Census, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("普查文件为空")
	}
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	cols := make(map[string]int, len(header))
	months := make(map[int]string)
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		cols[name] = i
		if monthColumn.MatchString(name) {
			months[i] = name
		}
	}
	for _, required := range []string{ColumnBusinessLine, ColumnProvider, ColumnFacility} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("缺少列 %q", required)
		}
	}

	census := &model.Census{BusinessLine: businessLine, Source: SourceCSV}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", line, err)
		}
		if field(record, cols[ColumnBusinessLine]) != businessLine {
			continue
		}

		row := model.CensusRow{
			BusinessLine: businessLine,
			ProviderID:   field(record, cols[ColumnProvider]),
			FacilityID:   field(record, cols[ColumnFacility]),
			Monthly:      make(map[string]float64, len(months)),
		}
		if row.ProviderID == "" || row.FacilityID == "" {
			continue
		}
		for i, month := range months {
			v, ok, err := parseNumber(field(record, i))
			if err != nil {
				return nil, fmt.Errorf("第 %d 行 %s 列: %w", line, month, err)
			}
			if ok {
				row.Monthly[month] = v
			}
		}
		census.Rows = append(census.Rows, row)
	}
	return census, nil
}

// ReadMatrix 解析矩阵 CSV：第 0 列为行 ID，表头为目标 ID，空单元格视为缺失
func ReadMatrix(r io.Reader) (map[string]map[string]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("矩阵文件为空")
	}
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	out := make(map[string]map[string]float64)
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", line, err)
		}
		from := field(record, 0)
		if from == "" {
			continue
		}
		row := make(map[string]float64, len(header)-1)
		for i := 1; i < len(header); i++ {
			to := strings.TrimSpace(header[i])
			v, ok, err := parseNumber(field(record, i))
			if err != nil {
				return nil, fmt.Errorf("第 %d 行 %s 列: %w", line, to, err)
			}
			if ok {
				row[to] = v
			}
		}
		out[from] = row
	}
	return out, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseNumber 空值、NaN 返回 ok=false
func parseNumber(s string) (float64, bool, error) {
	switch strings.ToLower(s) {
	case "", "nan", "na", "null":
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, nil
	}
	return v, true, nil
}
