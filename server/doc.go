// Package server liga as camadas do servidor de slots a um socket TCP real.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos (cliente, buffer, tabela de slots, erros)
//   - application: casos de uso (claim de slot, decisão por peer, atendimento)
//   - infra: implementações concretas (mutex por slot, FIONREAD, x/time/rate, stats)
//   - server (este pacote): Config, Initialize, loop de accept + workers, logs
//
// Fluxo:
//
//  1. O acceptor adquire o primeiro slot livre (espera um Release se não houver)
//  2. Aceita uma conexão e consulta o limite por peer
//  3. Instala um ClientBuffer novo no slot e entrega o índice para a fila
//  4. Um worker drena o cliente, chama Process, fecha a conexão e libera o slot
//
// O slot adquirido no passo 1 só é liberado por quem o recebeu no passo 3.
package server
