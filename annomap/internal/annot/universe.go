package annot

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/biogo/biogo/io/featio"
	"github.com/biogo/biogo/io/featio/gff"
	"go.uber.org/zap"

	"github.com/Doomsbay/AnnoMap/annomap/internal/bbh"
	"github.com/Doomsbay/AnnoMap/annomap/internal/tsv"
)

// UniverseFormat is the kind of file a gene universe is read from.
type UniverseFormat int

const (
	UniverseList UniverseFormat = iota // one ID per line, first column
	UniverseGFF
	UniverseFasta
)

func (f UniverseFormat) String() string {
	switch f {
	case UniverseList:
		return "list"
	case UniverseGFF:
		return "gff"
	case UniverseFasta:
		return "fasta"
	}
	return fmt.Sprintf("universe(%d)", int(f))
}

// DetectUniverse picks the format from the file name, ignoring a .gz suffix.
func DetectUniverse(path string) UniverseFormat {
	name := strings.ToLower(strings.TrimSuffix(path, ".gz"))
	switch filepath.Ext(name) {
	case ".gff", ".gff3":
		return UniverseGFF
	case ".fa", ".fasta", ".faa", ".fna", ".pep":
		return UniverseFasta
	}
	return UniverseList
}

// Universe is a gene ID set together with the IDs that resolve to its genes.
type Universe struct {
	Genes []string  // sorted, unique
	IDs   bbh.IDMap // transcript, CDS and protein IDs to gene; nil for lists
}

// LoadUniverse opens path and reads it in the detected format. ids is applied
// to FASTA record IDs.
func LoadUniverse(path string, ids bbh.IDMap, opts Options) (Universe, error) {
	in, err := Open(path)
	if err != nil {
		return Universe{}, err
	}
	defer func() {
		_ = in.Close()
	}()
	if opts.Source == "" {
		opts.Source = path
	}

	var u Universe
	format := DetectUniverse(path)
	switch format {
	case UniverseGFF:
		u, err = ReadGFF(in, DefaultGFFOptions())
	case UniverseFasta:
		u.Genes, err = ReadFastaIDs(in, ids)
	default:
		u.Genes, err = ReadIDList(in, opts)
	}
	if err != nil {
		return Universe{}, fmt.Errorf("read universe %s: %w", path, err)
	}
	log := opts.logger()
	if len(u.Genes) == 0 {
		log.Warn("gene universe is empty", zap.String("source", path), zap.Error(ErrEmptyInput))
	}
	log.Debug("gene universe read",
		zap.String("source", path),
		zap.Stringer("format", format),
		zap.Int("genes", len(u.Genes)),
		zap.Int("ids", len(u.IDs)))
	return u, nil
}

// GFFOptions names the feature types read from a GFF3 file.
type GFFOptions struct {
	GeneTypes []string
}

// DefaultGFFOptions treats gene and pseudogene features as genes.
func DefaultGFFOptions() GFFOptions {
	return GFFOptions{GeneTypes: []string{"gene", "pseudogene"}}
}

// maxParentDepth bounds the Parent chain walked from a feature to its gene.
const maxParentDepth = 8

// ReadGFF collects the ID of every gene feature, and maps the ID of every
// other feature (and the protein_id of CDS features) to the gene at the top
// of its Parent chain.
func ReadGFF(r io.Reader, opts GFFOptions) (Universe, error) {
	geneTypes := make(map[string]struct{}, len(opts.GeneTypes))
	for _, t := range opts.GeneTypes {
		geneTypes[t] = struct{}{}
	}

	genes := make(map[string]struct{})
	parent := make(map[string]string)
	sc := featio.NewScanner(gff.NewReader(&gff3Filter{r: bufio.NewReader(r)}))
	for sc.Next() {
		f := sc.Feat().(*gff.Feature)
		id := attribute(f, "ID")
		if _, ok := geneTypes[f.Feature]; ok {
			if id != "" {
				genes[id] = struct{}{}
			}
			continue
		}
		p, _, _ := strings.Cut(attribute(f, "Parent"), ",")
		if p == "" {
			continue
		}
		if id != "" {
			parent[id] = p
		}
		if pid := attribute(f, "protein_id"); pid != "" {
			parent[pid] = p
		}
	}
	if err := sc.Error(); err != nil {
		return Universe{}, fmt.Errorf("scan gff: %w", err)
	}

	u := Universe{Genes: make([]string, 0, len(genes)), IDs: make(bbh.IDMap)}
	for id := range genes {
		u.Genes = append(u.Genes, id)
	}
	sort.Strings(u.Genes)
	for id, p := range parent {
		for depth := 0; depth < maxParentDepth; depth++ {
			if _, ok := genes[p]; ok {
				u.IDs[id] = p
				break
			}
			next, ok := parent[p]
			if !ok {
				break
			}
			p = next
		}
	}
	return u, nil
}

// attribute returns the value of a GFF3 attribute rewritten by gff3Filter,
// with its quotes removed and %XX escapes decoded.
func attribute(f *gff.Feature, key string) string {
	v := f.FeatAttributes.Get(key)
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	if u, err := url.PathUnescape(v); err == nil {
		v = u
	}
	return v
}

// gff3Filter turns GFF3 into input the GFF2 reader accepts: ## directives
// are dropped, reading stops at the ##FASTA section, and the attribute column
// is rewritten from key=value;key=value to key "value"; key "value".
type gff3Filter struct {
	r    *bufio.Reader
	buf  []byte
	done bool
}

func (f *gff3Filter) Read(p []byte) (int, error) {
	for len(f.buf) == 0 {
		if f.done {
			return 0, io.EOF
		}
		line, err := f.r.ReadBytes('\n')
		switch {
		case bytes.HasPrefix(line, []byte("##FASTA")):
			f.done = true
			line = nil
		case bytes.HasPrefix(line, []byte("##")):
			line = nil
		case len(line) > 0 && line[0] != '#':
			line = gff2Line(line)
		}
		f.buf = line
		if err == io.EOF {
			f.done = true
		} else if err != nil {
			return 0, err
		}
	}
	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

// gff2Line rewrites the ninth column of a GFF3 feature line and maps the
// unknown strand '?' to '.'. Attributes whose
// key the GFF2 reader cannot hold (anything but letters and '_') are dropped,
// as is the "." placeholder. Values keep their %XX escapes, so ';' and tabs
// inside a value cannot split it.
func gff2Line(line []byte) []byte {
	text := strings.TrimRight(string(line), "\r\n")
	fields := strings.Split(text, "\t")
	if len(fields) < 9 {
		return line
	}
	if fields[6] == "?" {
		fields[6] = "."
	}
	var attrs []string
	for _, kv := range strings.Split(fields[8], ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok || !gff2Tag(k) {
			continue
		}
		v = strings.ReplaceAll(strings.TrimSpace(v), `"`, "%22")
		attrs = append(attrs, k+` "`+v+`"`)
	}
	fields[8] = strings.Join(attrs, "; ")
	return []byte(strings.Join(fields, "\t") + "\n")
}

func gff2Tag(k string) bool {
	if k == "" {
		return false
	}
	for _, c := range k {
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// ReadFastaIDs returns the sorted unique IDs of the FASTA records in r, each
// resolved through ids.
func ReadFastaIDs(r io.Reader, ids bbh.IDMap) ([]string, error) {
	seen := make(map[string]struct{})
	err := parseFasta(r, func(rec fastaRecord) error {
		if rec.id != "" {
			seen[ids.Resolve(rec.id)] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortedKeys(seen), nil
}

// ReadIDList returns the sorted unique values of the first column of r.
func ReadIDList(r io.Reader, opts Options) ([]string, error) {
	seen := make(map[string]struct{})
	err := tsv.Parse(r, opts.table(), func(row tsv.Row) error {
		if id := strings.TrimSpace(tsv.Nullable(row.Fields[0])); id != "" {
			seen[id] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortedKeys(seen), nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
