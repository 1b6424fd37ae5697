package produce

import amqp "github.com/rabbitmq/amqp091-go"

type Produce struct {
	OffloadService *OffloadProduceService
}

var produceInstance *Produce

func InitProduce(channel *amqp.Channel) *Produce {
	if produceInstance != nil {
		return produceInstance
	}

	offloadService := InitOffloadProduceService(channel)
	if offloadService == nil {
		panic("Failed to initialize Offload produce service")
	}

	produceInstance = &Produce{
		OffloadService: offloadService,
	}

	return produceInstance
}

func GetProduce() *Produce {
	if produceInstance == nil {
		panic("Produce not initialized. Call InitProduce() first.")
	}
	return produceInstance
}
