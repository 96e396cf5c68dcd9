package domain

import "errors"

// Errores de dominio (sin dependencias externas). Cada uno corresponde a una
// clase de fallo que los adaptadores traducen a su propio formato.
var (
	ErrNotFound        = errors.New("recurso no encontrado")
	ErrValidation      = errors.New("entrada inválida")
	ErrDuplicate       = errors.New("recurso duplicado")
	ErrDuplicateFile   = errors.New("documento duplicado (sha256 ya registrado)")
	ErrConflictPending = errors.New("importación con conflictos pendientes de resolución")
	ErrStateTransition = errors.New("transición de estado no permitida")
	ErrLowConfidence   = errors.New("documento procesado con confianza baja")
	ErrNoMatch         = errors.New("sin OT candidata para el documento")
	ErrExternal        = errors.New("servicio externo no disponible")
	ErrInconsistency   = errors.New("inconsistencia en campos derivados")
	ErrUnauthorized    = errors.New("no autorizado")
	ErrForbidden       = errors.New("acceso denegado")
	ErrStaleResolution = errors.New("la OT cambió desde la carga; repetir fase 1")
)
