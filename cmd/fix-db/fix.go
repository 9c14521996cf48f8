package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

const (
	legacyExplanationColumn = "explaination"
	explanationColumn       = "explanation"
)

// columnInfo возвращает тип колонки таблицы challenge; пустая строка - колонки нет
func columnInfo(ctx context.Context, tx *sql.Tx, column string) (string, error) {
	var dataType string
	err := tx.QueryRowContext(ctx,
		`SELECT data_type FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = 'challenge' AND column_name = $1`,
		column,
	).Scan(&dataType)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to inspect column %s: %w", column, err)
	}
	return dataType, nil
}

// fixChallengeSchema приводит старую таблицу challenge к текущей схеме в одной транзакции:
// переименовывает explaination в explanation и переводит options из text в jsonb.
// Возвращает true, если что-то было изменено.
func fixChallengeSchema(ctx context.Context, db *sql.DB, log logrus.FieldLogger) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	changed := false

	legacyType, err := columnInfo(ctx, tx, legacyExplanationColumn)
	if err != nil {
		return false, err
	}
	if legacyType != "" {
		currentType, err := columnInfo(ctx, tx, explanationColumn)
		if err != nil {
			return false, err
		}

		if currentType == "" {
			log.Info("Найдена колонка 'explaination', переименовываем")
			if _, err := tx.ExecContext(ctx, `ALTER TABLE challenge RENAME COLUMN explaination TO explanation`); err != nil {
				return false, fmt.Errorf("failed to rename column: %w", err)
			}
		} else {
			// Обе колонки есть: переносим значения и удаляем старую
			log.Info("Найдены обе колонки, переносим значения из 'explaination'")
			res, err := tx.ExecContext(ctx, `UPDATE challenge SET explanation = explaination WHERE explanation IS NULL`)
			if err != nil {
				return false, fmt.Errorf("failed to copy explanations: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil {
				log.WithField("rows", n).Info("Значения перенесены")
			}
			if _, err := tx.ExecContext(ctx, `ALTER TABLE challenge DROP COLUMN explaination`); err != nil {
				return false, fmt.Errorf("failed to drop legacy column: %w", err)
			}
		}
		changed = true
	} else {
		log.Info("Колонка 'explaination' не найдена, переименование не требуется")
	}

	optionsType, err := columnInfo(ctx, tx, "options")
	if err != nil {
		return false, err
	}
	if optionsType == "text" || optionsType == "character varying" {
		log.WithField("type", optionsType).Info("Колонка options хранится как текст, переводим в jsonb")
		if _, err := tx.ExecContext(ctx, `ALTER TABLE challenge ALTER COLUMN options TYPE jsonb USING options::jsonb`); err != nil {
			return false, fmt.Errorf("failed to convert options to jsonb: %w", err)
		}
		changed = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit schema fix: %w", err)
	}
	return changed, nil
}
