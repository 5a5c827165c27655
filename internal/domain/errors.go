package domain

import "errors"

var (
	// ErrNotFound se devuelve cuando un registro del ledger no existe.
	ErrNotFound = errors.New("not found")

	// ErrMalformedDecision indica que la respuesta del oráculo no se pudo validar.
	ErrMalformedDecision = errors.New("malformed decision")

	// ErrUnresolvedAsset indica que ningún token de la contraparte coincide con la referencia.
	ErrUnresolvedAsset = errors.New("unresolved asset")

	// ErrCounterAssetTarget indica que el activo elegido es el propio activo de contrapartida.
	ErrCounterAssetTarget = errors.New("target is the counter asset")

	// ErrLimitExceeded indica que un límite diario (global o por activo) está agotado.
	ErrLimitExceeded = errors.New("daily trade limit reached")

	// ErrAdaptiveSkip indica que el activo tiene un win-rate histórico por debajo del mínimo.
	ErrAdaptiveSkip = errors.New("adaptive skip: low historical win rate")

	// ErrLowConfidence indica que la confianza declarada por el oráculo no llega al umbral.
	ErrLowConfidence = errors.New("decision confidence below threshold")
)
