// Package domain define contratos e tipos de domínio do servidor de slots:
// cliente, buffer por cliente, tabela de slots, limiter por peer e estatísticas.
//
// Este pacote não depende de net.Listener, sockets ou implementações concretas.
// A intenção é permitir testes de unidade puros (fakes de Source) e desacoplar
// as regras de admissão/leitura de detalhes de infraestrutura.
package domain
