package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig points at a sentence-transformers export (model.onnx + vocab.txt).
type ONNXConfig struct {
	ModelPath   string
	VocabPath   string
	LibraryPath string
	MaxTokens   int
	Dimension   int
}

// ONNXEmbedder runs all-MiniLM-L6-v2 locally: WordPiece tokens in, mean-pooled
// and L2-normalized sentence vector out.
type ONNXEmbedder struct {
	mu sync.Mutex

	cfg ONNXConfig

	tokenizer  *WordPiece
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	outputRank int
	inited     bool
	initErr    error
}

// NewONNXEmbedder creates an embedder that lazily loads the runtime, vocab and session.
func NewONNXEmbedder(cfg ONNXConfig) *ONNXEmbedder {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 384
	}
	return &ONNXEmbedder{cfg: cfg}
}

func (e *ONNXEmbedder) Dimension() int {
	return e.cfg.Dimension
}

func (e *ONNXEmbedder) initOnce() error {
	if e.inited {
		return e.initErr
	}
	e.inited = true
	e.initErr = e.load()
	return e.initErr
}

func (e *ONNXEmbedder) load() error {
	vocab, err := LoadVocab(e.cfg.VocabPath)
	if err != nil {
		return err
	}
	tok, err := NewWordPiece(vocab, e.cfg.MaxTokens)
	if err != nil {
		return err
	}
	e.tokenizer = tok

	if !ort.IsInitialized() {
		if e.cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(e.cfg.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("onnx init environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(e.cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return fmt.Errorf("onnx model has no inputs or outputs")
	}
	for _, in := range inputs {
		switch in.Name {
		case "input_ids", "attention_mask", "token_type_ids":
			e.inputNames = append(e.inputNames, in.Name)
		default:
			return fmt.Errorf("onnx model has unexpected input %q", in.Name)
		}
	}
	// Prefer a pooled sentence output when the export provides one.
	out := outputs[0]
	for _, o := range outputs {
		if strings.Contains(o.Name, "sentence_embedding") {
			out = o
			break
		}
	}
	e.outputName = out.Name
	e.outputRank = len(out.Dimensions)
	if e.outputRank != 2 && e.outputRank != 3 {
		return fmt.Errorf("onnx output %q has rank %d", out.Name, e.outputRank)
	}

	session, err := ort.NewDynamicAdvancedSession(e.cfg.ModelPath, e.inputNames, []string{e.outputName}, nil)
	if err != nil {
		return fmt.Errorf("onnx new session: %w", err)
	}
	e.session = session
	return nil
}

// Embed tokenizes text, runs inference and pools the hidden states.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.initOnce(); err != nil {
		return nil, err
	}
	if e.session == nil {
		return nil, errors.New("onnx session is not loaded")
	}

	ids := e.tokenizer.Encode(text)
	n := int64(len(ids))
	mask := make([]int64, n)
	for i := range mask {
		mask[i] = 1
	}

	inputs := make([]ort.Value, 0, len(e.inputNames))
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()
	for _, name := range e.inputNames {
		var data []int64
		switch name {
		case "input_ids":
			data = ids
		case "attention_mask":
			data = mask
		default:
			data = make([]int64, n)
		}
		t, err := ort.NewTensor(ort.NewShape(1, n), data)
		if err != nil {
			return nil, fmt.Errorf("onnx new input tensor: %w", err)
		}
		inputs = append(inputs, t)
	}

	dim := int64(e.cfg.Dimension)
	shape := ort.NewShape(1, dim)
	if e.outputRank == 3 {
		shape = ort.NewShape(1, n, dim)
	}
	output, err := ort.NewEmptyTensor[float32](shape)
	if err != nil {
		return nil, fmt.Errorf("onnx new output tensor: %w", err)
	}
	defer output.Destroy()

	if err := e.session.Run(inputs, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	data := output.GetData()
	var vec []float32
	if e.outputRank == 3 {
		vec = meanPool(data, mask, int(dim))
	} else {
		vec = append([]float32(nil), data[:dim]...)
	}
	l2normalize(vec)
	return vec, nil
}

// Close releases the session. A later Embed loads the model again.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inited = false
	e.initErr = nil
	if e.session != nil {
		err := e.session.Destroy()
		e.session = nil
		return err
	}
	return nil
}

// meanPool averages token vectors of hidden (tokens x dim) where mask is set.
func meanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var count float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for d, x := range row {
			out[d] += x
		}
		count++
	}
	if count > 0 {
		for d := range out {
			out[d] /= count
		}
	}
	return out
}
