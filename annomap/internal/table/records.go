package table

import (
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"github.com/Doomsbay/AnnoMap/annomap/internal/bbh"
	"github.com/Doomsbay/AnnoMap/annomap/internal/coverage"
	"github.com/Doomsbay/AnnoMap/annomap/internal/scenario"
)

var (
	ScenarioSchema = arrow.NewSchema([]arrow.Field{
		{Name: "gene_id", Type: arrow.BinaryTypes.String},
		{Name: "side", Type: arrow.BinaryTypes.String},
		{Name: "scenario_label", Type: arrow.BinaryTypes.String},
		{Name: "group_id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "partner_gene_ids", Type: arrow.BinaryTypes.String},
		{Name: "partner_count", Type: arrow.PrimitiveTypes.Int64},
		{Name: "multiplicity_flag", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	BBHSchema = arrow.NewSchema([]arrow.Field{
		{Name: "old_gene_id", Type: arrow.BinaryTypes.String},
		{Name: "new_gene_id", Type: arrow.BinaryTypes.String},
		{Name: "avg_identity", Type: arrow.PrimitiveTypes.Float64},
		{Name: "avg_coverage", Type: arrow.PrimitiveTypes.Float64},
	}, nil)

	EdgeSchema = arrow.NewSchema([]arrow.Field{
		{Name: "old_gene_id", Type: arrow.BinaryTypes.String},
		{Name: "new_gene_id", Type: arrow.BinaryTypes.String},
		{Name: "codes", Type: arrow.BinaryTypes.String},
		{Name: "transcript_count", Type: arrow.PrimitiveTypes.Int64},
		{Name: "bbh", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "avg_identity", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "avg_coverage", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)

	CoverageSchema = arrow.NewSchema([]arrow.Field{
		{Name: "entity_key", Type: arrow.BinaryTypes.String},
		{Name: "total_covered_length", Type: arrow.PrimitiveTypes.Int64},
		{Name: "raw_length", Type: arrow.PrimitiveTypes.Int64},
		{Name: "merged_intervals", Type: arrow.BinaryTypes.String},
	}, nil)
)

// Scenarios builds the per-gene scenario table. The multiplicity flag is null
// for genes without partners. The caller releases the record.
func Scenarios(genes []scenario.Assignment) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, ScenarioSchema)
	defer b.Release()

	gene := b.Field(0).(*array.StringBuilder)
	side := b.Field(1).(*array.StringBuilder)
	label := b.Field(2).(*array.StringBuilder)
	group := b.Field(3).(*array.Int64Builder)
	partners := b.Field(4).(*array.StringBuilder)
	count := b.Field(5).(*array.Int64Builder)
	flag := b.Field(6).(*array.StringBuilder)
	for _, a := range genes {
		gene.Append(a.Gene)
		side.Append(a.Side.String())
		label.Append(a.Label.String())
		group.Append(int64(a.GroupID))
		partners.Append(strings.Join(a.Partners, ","))
		count.Append(int64(a.PartnerCount))
		if a.PartnerCount == 0 {
			flag.AppendNull()
		} else {
			flag.Append(a.Flag.String())
		}
	}
	return b.NewRecord()
}

// Pairs builds the reciprocal best hit table.
func Pairs(pairs []bbh.Pair) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, BBHSchema)
	defer b.Release()

	oldGene := b.Field(0).(*array.StringBuilder)
	newGene := b.Field(1).(*array.StringBuilder)
	ident := b.Field(2).(*array.Float64Builder)
	cov := b.Field(3).(*array.Float64Builder)
	for _, p := range pairs {
		oldGene.Append(p.Old)
		newGene.Append(p.New)
		ident.Append(p.Identity)
		cov.Append(p.Coverage)
	}
	return b.NewRecord()
}

// Edges builds the gene edge table; identity and coverage are null for edges
// without a reciprocal best hit.
func Edges(edges []bbh.Edge) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, EdgeSchema)
	defer b.Release()

	oldGene := b.Field(0).(*array.StringBuilder)
	newGene := b.Field(1).(*array.StringBuilder)
	codes := b.Field(2).(*array.StringBuilder)
	tx := b.Field(3).(*array.Int64Builder)
	isBBH := b.Field(4).(*array.BooleanBuilder)
	ident := b.Field(5).(*array.Float64Builder)
	cov := b.Field(6).(*array.Float64Builder)
	for _, e := range edges {
		oldGene.Append(e.Old)
		newGene.Append(e.New)
		codes.Append(e.CodeString())
		tx.Append(int64(e.Transcripts))
		isBBH.Append(e.BBH)
		if e.BBH {
			ident.Append(e.Identity)
			cov.Append(e.Coverage)
		} else {
			ident.AppendNull()
			cov.AppendNull()
		}
	}
	return b.NewRecord()
}

// Coverage builds the per-key coverage table. Merged intervals are written
// as start-end pairs separated by commas.
func Coverage(results []coverage.Result) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, CoverageSchema)
	defer b.Release()

	key := b.Field(0).(*array.StringBuilder)
	total := b.Field(1).(*array.Int64Builder)
	raw := b.Field(2).(*array.Int64Builder)
	merged := b.Field(3).(*array.StringBuilder)
	var sb strings.Builder
	for _, r := range results {
		key.Append(r.Key)
		total.Append(int64(r.Length))
		raw.Append(int64(r.Raw))
		sb.Reset()
		for i, iv := range r.Merged {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Itoa(iv.Start))
			sb.WriteByte('-')
			sb.WriteString(strconv.Itoa(iv.End))
		}
		merged.Append(sb.String())
	}
	return b.NewRecord()
}
