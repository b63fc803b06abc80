package ws

// ClientMsg é a mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// UserID: obrigatório em subscribe/unsubscribe; "*" recebe todas as apostas
type ClientMsg struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// AllUsers assina o feed completo de atividade
const AllUsers = "*"
