// Package application contém os casos de uso (regras de aplicação) do servidor:
// admissão em slot livre, decisão de taxa por peer e atendimento de um cliente.
//
// Ele depende apenas do pacote domain e não conhece sockets nem net.Listener.
// Ex.: AdmissionService.Claim retorna o índice de um slot já adquirido.
package application
