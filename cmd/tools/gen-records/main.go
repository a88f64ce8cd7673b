// Command gen-records writes a synthetic parameter sweep of result files for
// trying out sweepview. Every combination of the -k and -model values gets
// one file holding a membrane voltage and a calcium transient.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/banshee-data/sweepview/internal/record"
	"github.com/banshee-data/sweepview/internal/security"
)

type sweep struct {
	ks     []float64
	models []string
	points []string
	dims   []string
	steps  int
	dt     float64
}

func main() {
	output := flag.String("o", "results", "output directory")
	ks := flag.String("k", "0.5,1,2", "comma-separated values of the k parameter")
	models := flag.String("model", "tnnp,ord", "comma-separated model names")
	points := flag.String("points", "endo,mid,epi", "comma-separated measuring points")
	steps := flag.Int("n", 400, "time steps per record")
	dt := flag.Float64("dt", 1, "time step in ms")
	compress := flag.Bool("gzip", false, "write .json.gz files")
	flag.Parse()

	kv, err := parseFloats(*ks)
	if err != nil {
		log.Fatalf("invalid -k: %v", err)
	}
	sw := sweep{
		ks:     kv,
		models: splitList(*models),
		points: splitList(*points),
		dims:   []string{"x"},
		steps:  *steps,
		dt:     *dt,
	}

	if err := os.MkdirAll(*output, 0o755); err != nil {
		log.Fatalf("failed to create %s: %v", *output, err)
	}
	n := 0
	for _, rec := range sw.records() {
		path := filepath.Join(*output, fileName(rec, *compress))
		if err := writeRecord(path, rec, *compress); err != nil {
			log.Fatalf("failed to write %s: %v", path, err)
		}
		n++
	}
	log.Printf("✓ Created %d records in %s", n, *output)
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, v := range splitList(s) {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// records builds one record per (k, model) combination.
func (sw sweep) records() []*record.Record {
	time := make([]float64, sw.steps)
	for i := range time {
		time[i] = float64(i) * sw.dt
	}

	var out []*record.Record
	for _, k := range sw.ks {
		for mi, model := range sw.models {
			v := record.NewArray3(sw.steps, len(sw.points), len(sw.dims))
			ca := record.NewArray3(sw.steps, len(sw.points), len(sw.dims))
			for m := range sw.points {
				// Later measuring points activate later.
				delay := 10 + 5*float64(m)
				for d := range sw.dims {
					for i, t := range time {
						v.Set(i, m, d, actionPotential(t-delay, k, mi))
						ca.Set(i, m, d, calciumTransient(t-delay, k))
					}
				}
			}
			out = append(out, &record.Record{
				InputParams: record.Params{
					{Name: "k", Value: k},
					{Name: "model", Value: model},
				},
				OutputValues: record.Quantities{
					{Name: "V", Values: v},
					{Name: "Ca", Values: ca},
				},
				Time:       time,
				MsPoints:   sw.points,
				Dimensions: sw.dims,
			})
		}
	}
	return out
}

// actionPotential is a smooth upstroke followed by a plateau whose duration
// scales with k.
func actionPotential(t, k float64, model int) float64 {
	const rest, peak = -85.0, 30.0
	if t < 0 {
		return rest
	}
	apd := 200 * k * (1 + 0.1*float64(model))
	up := 1 - math.Exp(-t/1.5)
	down := 1 / (1 + math.Exp((t-apd)/15))
	return rest + (peak-rest)*up*down
}

func calciumTransient(t, k float64) float64 {
	const base = 0.1
	if t < 0 {
		return base
	}
	tau := 80 * k
	return base + 0.9*(1-math.Exp(-t/8))*math.Exp(-t/tau)
}

func fileName(rec *record.Record, compressed bool) string {
	var parts []string
	for _, p := range rec.InputParams {
		parts = append(parts, security.SanitizeFilename(p.Name)+"_"+security.SanitizeFilename(record.FormatValue(p.Value)))
	}
	name := strings.Join(parts, "__") + ".json"
	if compressed {
		name += ".gz"
	}
	return name
}

func writeRecord(path string, rec *record.Record, compressed bool) error {
	var buf bytes.Buffer
	if err := record.Encode(&buf, rec); err != nil {
		return err
	}
	if !compressed {
		return os.WriteFile(path, buf.Bytes(), 0o644)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("gzip: %w", err)
	}
	return f.Close()
}
