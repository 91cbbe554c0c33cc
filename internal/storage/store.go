// Package storage は記事・植物・イベント画像のファイルストレージを提供する。
package storage

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/midori/internal/model"
)

// ImageStore は画像ファイルの保存・削除インターフェース。
// 保存結果はHTTP配信用のURLパスとして返す。
type ImageStore interface {
	// Store は画像バイト列を保存し、配信用URLパスを返す。
	// 形式判定はバイト列の先頭からのMIMEスニッフィングで行う。
	Store(data []byte) (string, error)
	// Delete は配信用URLパスで指定された画像を削除する。
	// 既に存在しない場合は冪等にnilを返す。
	Delete(url string) error
	// ListURLs は保存済み全画像の配信用URLパスを返す。孤立ファイル掃除に使用する。
	ListURLs() ([]string, error)
}

// allowedImageTypes は受け付けるMIMEタイプと拡張子の対応。
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// LocalImageStore はローカルディスクを使用したImageStoreの実装。
// ファイル名はuuidで生成し、アップロード元のファイル名は一切使用しない。
type LocalImageStore struct {
	baseDir   string
	urlPrefix string
	maxSize   int64
}

// NewLocalImageStore はLocalImageStoreを生成し、保存先ディレクトリを作成する。
// urlPrefixは配信用URLパスの接頭辞（例: "/uploads"）。
func NewLocalImageStore(baseDir, urlPrefix string, maxSize int64) (*LocalImageStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("画像保存ディレクトリの作成に失敗しました: %w", err)
	}
	return &LocalImageStore{
		baseDir:   baseDir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
		maxSize:   maxSize,
	}, nil
}

// Store は画像バイト列を保存し、配信用URLパスを返す。
func (s *LocalImageStore) Store(data []byte) (string, error) {
	if len(data) == 0 {
		return "", model.NewInvalidImageError("画像データが空です")
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return "", model.NewInvalidImageError(fmt.Sprintf("サイズ上限（%dバイト）を超えています", s.maxSize))
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", model.NewInvalidImageError("対応していない形式です: " + contentType)
	}

	name := uuid.New().String() + ext
	path := filepath.Join(s.baseDir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("画像の書き込みに失敗しました: %w", err)
	}

	return s.urlPrefix + "/" + name, nil
}

// Delete は配信用URLパスで指定された画像を削除する。
func (s *LocalImageStore) Delete(url string) error {
	name, err := s.filenameFromURL(url)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(s.baseDir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("画像の削除に失敗しました: %w", err)
	}
	return nil
}

// ListURLs は保存済み全画像の配信用URLパスを返す。
func (s *LocalImageStore) ListURLs() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("画像ディレクトリの読み取りに失敗しました: %w", err)
	}

	var urls []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		urls = append(urls, s.urlPrefix+"/"+entry.Name())
	}
	return urls, nil
}

// BaseDir は保存先ディレクトリを返す。静的ファイル配信の設定に使用する。
func (s *LocalImageStore) BaseDir() string {
	return s.baseDir
}

// filenameFromURL は配信用URLパスからファイル名を取り出し、
// ディレクトリトラバーサルを防ぐために検証する。
func (s *LocalImageStore) filenameFromURL(url string) (string, error) {
	if !strings.HasPrefix(url, s.urlPrefix+"/") {
		return "", fmt.Errorf("ストア外のURLです: %s", url)
	}
	name := strings.TrimPrefix(url, s.urlPrefix+"/")
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("不正なファイル名です: %s", name)
	}
	return name, nil
}

// compile-time interface check
var _ ImageStore = (*LocalImageStore)(nil)
