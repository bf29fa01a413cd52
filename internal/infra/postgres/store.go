package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/ragkit/internal/core/rag"
	"github.com/jinford/ragkit/internal/core/store"
	"github.com/jinford/ragkit/pkg/db"
)

// Store は pgvector を使用した PostgreSQL ベクトルストア実装
// 名前空間ごとに行を分離し、コサイン類似度で検索する
type Store struct {
	db        *db.DB
	dimension int

	mu        sync.RWMutex
	namespace string
}

// NewStore は新しい Store を作成する
func NewStore(database *db.DB, dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, rag.ConfigErrorf("ベクトル次元数が不正です: %d", dimension)
	}
	return &Store{
		db:        database,
		dimension: dimension,
		namespace: store.DefaultNamespace,
	}, nil
}

// EnsureSchema は拡張とテーブルを作成する
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rag_chunks (
			namespace TEXT NOT NULL,
			id TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			content TEXT NOT NULL,
			meta JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d) NOT NULL,
			PRIMARY KEY (namespace, id)
		)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS rag_chunks_doc_id_idx ON rag_chunks (namespace, doc_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// AddMany は複数のチャンクとベクトルをまとめて追加する
func (s *Store) AddMany(ctx context.Context, chunks []rag.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return rag.ConfigErrorf("チャンク数とベクトル数が一致しません: chunks=%d vectors=%d", len(chunks), len(vectors))
	}

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		if err := s.checkDim(vectors[i]); err != nil {
			return err
		}

		meta, err := json.Marshal(chunk.Meta)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk meta: %w", err)
		}

		batch.Queue(
			`INSERT INTO rag_chunks (namespace, id, doc_id, content, meta, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (namespace, id) DO UPDATE
			 SET doc_id = EXCLUDED.doc_id, content = EXCLUDED.content,
			     meta = EXCLUDED.meta, embedding = EXCLUDED.embedding`,
			s.currentNamespace(), chunk.ID, chunk.DocID, chunk.Text, meta, pgvector.NewVector(vectors[i]),
		)
	}

	results := s.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to add chunks: %w", err)
		}
	}
	return nil
}

// Upsert はチャンクを更新または挿入する
func (s *Store) Upsert(ctx context.Context, chunk rag.Chunk, vector []float32) error {
	return s.AddMany(ctx, []rag.Chunk{chunk}, [][]float32{vector})
}

// DeleteByDoc は文書に属する全チャンクを削除する
func (s *Store) DeleteByDoc(ctx context.Context, docID string) error {
	_, err := s.db.Pool.Exec(ctx,
		`DELETE FROM rag_chunks WHERE namespace = $1 AND doc_id = $2`,
		s.currentNamespace(), docID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for doc %s: %w", docID, err)
	}
	return nil
}

// Search はクエリベクトルに類似するチャンクをスコア降順で最大k件返す
func (s *Store) Search(ctx context.Context, queryVector []float32, k int, metaFilter map[string]any) ([]rag.Retrieved, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := s.checkDim(queryVector); err != nil {
		return nil, err
	}

	query := `SELECT id, doc_id, content, meta, 1 - (embedding <=> $1) AS score
		FROM rag_chunks
		WHERE namespace = $2`
	args := []any{pgvector.NewVector(queryVector), s.currentNamespace()}

	if len(metaFilter) > 0 {
		filter, err := json.Marshal(metaFilter)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal meta filter: %w", err)
		}
		query += ` AND meta @> $3::jsonb`
		args = append(args, filter)
	}

	query += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT %d`, k)

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var results []rag.Retrieved
	for rows.Next() {
		var (
			chunk rag.Chunk
			meta  []byte
			score float64
		)
		if err := rows.Scan(&chunk.ID, &chunk.DocID, &chunk.Text, &meta, &score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		if err := json.Unmarshal(meta, &chunk.Meta); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk meta: %w", err)
		}
		results = append(results, rag.Retrieved{Chunk: chunk, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunk rows: %w", err)
	}
	return results, nil
}

// Count は現在の名前空間のチャンク数を返す
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM rag_chunks WHERE namespace = $1`,
		s.currentNamespace(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Clear は現在の名前空間の全チャンクを削除する
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.Pool.Exec(ctx,
		`DELETE FROM rag_chunks WHERE namespace = $1`,
		s.currentNamespace(),
	)
	if err != nil {
		return fmt.Errorf("failed to clear namespace: %w", err)
	}
	return nil
}

// Namespaces は名前空間の一覧を返す
func (s *Store) Namespaces(ctx context.Context) ([]store.NamespaceInfo, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT namespace, COUNT(*) FROM rag_chunks GROUP BY namespace ORDER BY namespace`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	defer rows.Close()

	var infos []store.NamespaceInfo
	for rows.Next() {
		var info store.NamespaceInfo
		if err := rows.Scan(&info.Name, &info.Count); err != nil {
			return nil, fmt.Errorf("failed to scan namespace row: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// SwitchNamespace は現在の名前空間を切り替える
func (s *Store) SwitchNamespace(_ context.Context, namespace string) error {
	if namespace == "" {
		return rag.ConfigErrorf("名前空間が空です")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.namespace = namespace
	return nil
}

// CurrentNamespace は現在の名前空間を返す
func (s *Store) CurrentNamespace() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.namespace
}

func (s *Store) currentNamespace() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.namespace
}

// checkDim はベクトル次元がテーブル定義と一致することを検証する
func (s *Store) checkDim(vector []float32) error {
	if len(vector) != s.dimension {
		return rag.ConfigErrorf("ベクトルの次元が一致しません: index=%d vector=%d", s.dimension, len(vector))
	}
	return nil
}

var (
	_ store.VectorStore       = (*Store)(nil)
	_ store.NamespaceLister   = (*Store)(nil)
	_ store.NamespaceSwitcher = (*Store)(nil)
)
