package analysis

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

var ErrArtifactMismatch = errors.New("artifact content does not match its extension")

// Verdict 落盘产物的文件头校验结果
type Verdict struct {
	Verified    bool   // 文件头与后缀一致
	RealExt     string // 根据文件头识别的类型
	DeclaredExt string // 文件名后缀
	MIME        string
	Size        int64
	Message     string
}

// ArtifactInspector 校验采集器写出的文件确实是声明的格式
type ArtifactInspector struct {
	aliasMap map[string]map[string]bool
}

func NewArtifactInspector() *ArtifactInspector {
	inspector := &ArtifactInspector{
		aliasMap: make(map[string]map[string]bool),
	}
	inspector.initRules()
	return inspector
}

// initRules 同一种格式的多个常见后缀
func (t *ArtifactInspector) initRules() {
	allow := func(realType string, allowedExts ...string) {
		if _, ok := t.aliasMap[realType]; !ok {
			t.aliasMap[realType] = make(map[string]bool)
		}
		t.aliasMap[realType][realType] = true
		for _, ext := range allowedExts {
			t.aliasMap[realType][ext] = true
		}
	}

	allow("png")
	allow("jpg", "jpeg", "jpe")
	allow("tif", "tiff")
	allow("bmp", "dib")
	allow("webp")
}

// Inspect 读取文件头判断真实类型。不一致时返回 ErrArtifactMismatch 以及完整的 Verdict
func (t *ArtifactInspector) Inspect(filePath string) (*Verdict, error) {
	declaredExt := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	// 262 bytes 是 filetype 库建议的文件头长度
	head := make([]byte, 262)
	n, _ := file.Read(head)
	v := &Verdict{DeclaredExt: declaredExt, Size: info.Size()}
	if n == 0 {
		v.RealExt = "empty"
		v.Message = "Empty file"
		return v, ErrArtifactMismatch
	}

	kind, _ := filetype.Match(head[:n])
	if kind == filetype.Unknown {
		v.RealExt = "unknown"
		v.Message = "Unknown binary signature"
		return v, ErrArtifactMismatch
	}
	v.RealExt = kind.Extension
	v.MIME = kind.MIME.Value

	if !t.aliasMap[v.RealExt][declaredExt] {
		v.Message = fmt.Sprintf("Type Mismatch! Header is '%s' but file is '%s'", v.RealExt, declaredExt)
		return v, ErrArtifactMismatch
	}
	v.Verified = true
	return v, nil
}
