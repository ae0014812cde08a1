package corpus

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/Noofbiz/seqbatch/vocab"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
)

// maxLineSize bounds a single corpus line.
const maxLineSize = 16 * 1024 * 1024

type parser struct {
	opts Options
	src  *vocab.Vocab
	trg  *vocab.Vocab
	log  zerolog.Logger
}

// fileResult is what one file contributes to the corpus. skipped holds 0-based line
// numbers local to the file.
type fileResult struct {
	source    [][]int32
	target    [][]int32
	lines     int
	malformed int
	rejected  int
	skipped   []int
}

// openDecompressed returns a reader over f, transparently un-gzipping it.
func openDecompressed(f *os.File) (io.Reader, error) {
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		return gzip.NewReader(br)
	}
	return br, nil
}

// isTarArchive reports whether path holds a (possibly gzipped) tar archive.
func isTarArchive(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open corpus %s: %w", path, err)
	}
	defer f.Close()

	r, err := openDecompressed(f)
	if err != nil {
		return false, nil
	}
	_, err = tar.NewReader(r).Next()
	return err == nil, nil
}

func (p *parser) parseFile(filePath string) (fileResult, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return fileResult{}, fmt.Errorf("failed to stat corpus %s: %w", filePath, err)
	}
	if !info.Mode().IsRegular() {
		return fileResult{}, fmt.Errorf("%w: %s", ErrInvalidFile, filePath)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fileResult{}, fmt.Errorf("failed to open corpus %s: %w", filePath, err)
	}
	defer f.Close()

	r, err := openDecompressed(f)
	if err != nil {
		return fileResult{}, fmt.Errorf("failed to decompress corpus %s: %w", filePath, err)
	}
	return p.parse(r, filePath)
}

func (p *parser) parseArchiveMember(archivePath, member string) (fileResult, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return fileResult{}, fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer f.Close()

	r, err := openDecompressed(f)
	if err != nil {
		return fileResult{}, fmt.Errorf("failed to decompress archive %s: %w", archivePath, err)
	}

	want := path.Clean(member)
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return fileResult{}, fmt.Errorf("%w: member %q not found in %s", ErrConfiguration, member, archivePath)
		}
		if err != nil {
			return fileResult{}, fmt.Errorf("failed to read archive %s: %w", archivePath, err)
		}
		if hdr.Typeflag == tar.TypeReg && path.Clean(hdr.Name) == want {
			return p.parse(tr, archivePath+":"+member)
		}
	}
}

// parse reads records line by line. name is only used for logging and errors.
func (p *parser) parse(r io.Reader, name string) (fileResult, error) {
	var res fileResult
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := res.lines
		res.lines++

		src, trg, err := p.record(scanner.Text())
		if err != nil {
			if errors.Is(err, ErrMalformedRecord) {
				res.malformed++
			} else {
				res.rejected++
			}
			res.skipped = append(res.skipped, line)
			p.log.Debug().Err(err).Str("file", name).Int("line", line+1).Msg("skipping record")
			continue
		}
		res.source = append(res.source, src)
		if trg != nil {
			res.target = append(res.target, trg)
		}
	}
	if err := scanner.Err(); err != nil {
		return fileResult{}, fmt.Errorf("failed to read corpus %s: %w", name, err)
	}

	p.log.Debug().
		Str("file", name).
		Int("lines", res.lines).
		Int("accepted", len(res.source)).
		Int("skipped", len(res.skipped)).
		Msg("corpus file parsed")
	return res, nil
}

// record parses and encodes one line. trg is nil in source-only mode.
func (p *parser) record(line string) (src, trg []int32, err error) {
	fields := strings.Split(strings.TrimSpace(line), p.opts.Delimiter)
	want := 1
	if p.trg != nil {
		want = 2
	}
	if len(fields) != want {
		return nil, nil, fmt.Errorf("%w: %d fields, want %d", ErrMalformedRecord, len(fields), want)
	}

	encoded := make([][]int32, len(fields))
	for i, field := range fields {
		if p.opts.Normalize {
			field = norm.NFC.String(field)
		}
		words := strings.Fields(field)
		if err := p.checkLength(len(words)); err != nil {
			return nil, nil, err
		}
		v := p.src
		if i == 1 {
			v = p.trg
		}
		encoded[i] = v.Encode(words, p.opts.StartMark, p.opts.EndMark)
	}

	src = encoded[0]
	if want == 2 {
		trg = encoded[1]
	}
	if p.opts.TokenBudget > 0 {
		// Same measure as batching.Sample.Len: the target input drops one token.
		n := len(src)
		if trg != nil {
			n = max(n, len(trg)-1)
		}
		if n >= p.opts.TokenBudget {
			return nil, nil, fmt.Errorf("%w: sample length %d does not fit token budget %d",
				ErrSequenceLength, n, p.opts.TokenBudget)
		}
	}
	return src, trg, nil
}

func (p *parser) checkLength(words int) error {
	switch {
	case words == 0:
		return fmt.Errorf("%w: empty sequence", ErrSequenceLength)
	case words < p.opts.MinLength:
		return fmt.Errorf("%w: %d words, minimum is %d", ErrSequenceLength, words, p.opts.MinLength)
	case p.opts.MaxLength > 0 && words > p.opts.MaxLength:
		return fmt.Errorf("%w: %d words, maximum is %d", ErrSequenceLength, words, p.opts.MaxLength)
	}
	return nil
}
