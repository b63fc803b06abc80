package topics

const (
	// Bets: mudanças de linha (INSERT/UPDATE/DELETE) na tabela bets
	BetEvents = "bet_events"

	// Mercados liquidados (uma mensagem por liquidação); evento de integração,
	// sem consumidor interno: o /ws recebe os UPDATE de cada aposta
	MarketSettled = "market_settled"

	// DLQ do activity-worker
	BetEventsDLQ = "bet_events_dlq"
)
