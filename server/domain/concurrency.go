package domain

// SlotTable representa um conjunto fixo de slots reutilizáveis.
//
// Cada slot tem seu próprio lock, que protege ao mesmo tempo "slot em uso"
// e "buffer pode ser modificado". Não existe lock separado para o buffer.
//
// Contrato de handoff: quem consegue TryClaim(i) é dono do slot até chamar
// Release(i) exatamente uma vez. O dono pode transferir a posse (ex.: acceptor
// entrega o índice para um worker); a partir daí só o novo dono libera.
type SlotTable interface {
	Len() int
	// TryClaim tenta adquirir o slot i sem bloquear.
	TryClaim(i int) bool
	Release(i int)
	// Install e Buffer só são válidos para o dono do slot.
	Install(i int, buf *ClientBuffer)
	Buffer(i int) *ClientBuffer
	// Freed recebe um sinal (coalescido) sempre que algum slot é liberado.
	Freed() <-chan struct{}
	// Active é o número de slots adquiridos no momento.
	Active() int
}
