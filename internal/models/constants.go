package models

const (
	// DefaultRedisTTL tempo de vida dos snapshots de planilha no Redis (segundos)
	DefaultRedisTTL = 60 * 60

	// DefaultExportRange meses cobertos pela exportação padrão
	DefaultExportRangeMonthsBefore = 1
	DefaultExportRangeMonthsAfter  = 2

	// DefaultMinSourceRows número mínimo de linhas na origem para permitir
	// a remoção de registros órfãos do espelho
	DefaultMinSourceRows = 1
)
