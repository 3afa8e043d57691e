package passes

import (
	"testing"

	"aotc/internal/ir"
	"aotc/internal/stats"
)

func TestPipelineShapeByOptLevel(t *testing.T) {
	if len(Pipeline(0)) == 0 {
		t.Fatal("Pipeline(0) is empty")
	}
	if len(Pipeline(2)) <= len(Pipeline(1)) {
		t.Fatal("Pipeline(2) should include more passes than Pipeline(1)")
	}
}

func TestRunConvergesAndRecordsStats(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", 1, ir.I64)
	bb := fn.Body.First()
	b := ir.NewBuilder().SetToBlockEnd(bb)
	a := b.GetArg(0, ir.I64)
	dead := b.BinOp(ir.OpAdd, a, b.IntConst(0))
	b.Return(a)
	_ = dead

	c := stats.NewCollector()
	Run(m, Pipeline(1), c)

	report := c.Report()
	if report == "" {
		t.Fatal("expected a non-empty pass report")
	}
	for _, op := range fn.AllOps() {
		if op == dead {
			t.Fatal("dead op should not have survived the full pipeline")
		}
	}
}
