package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS depots (
    id          BIGSERIAL PRIMARY KEY,
    code        TEXT NOT NULL UNIQUE,
    label       TEXT NOT NULL DEFAULT '',
    address     TEXT NOT NULL DEFAULT '',
    city        TEXT NOT NULL DEFAULT '',
    postal_code TEXT NOT NULL DEFAULT '',
    phone       TEXT NOT NULL DEFAULT '',
    gps_x       DOUBLE PRECISION NOT NULL DEFAULT 0,
    gps_y       DOUBLE PRECISION NOT NULL DEFAULT 0,
    depot_type  TEXT NOT NULL DEFAULT 'storage',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS customers (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL,
    first_name  TEXT NOT NULL DEFAULT '',
    phone       TEXT NOT NULL DEFAULT '',
    email       TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS customer_addresses (
    id          BIGSERIAL PRIMARY KEY,
    customer_id BIGINT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
    label       TEXT NOT NULL DEFAULT '',
    street      TEXT NOT NULL DEFAULT '',
    city        TEXT NOT NULL DEFAULT '',
    postal_code TEXT NOT NULL DEFAULT '',
    is_default  BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_customer_addresses_customer ON customer_addresses(customer_id);

CREATE TABLE IF NOT EXISTS employees (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL,
    first_name  TEXT NOT NULL DEFAULT '',
    email       TEXT NOT NULL DEFAULT '',
    depot_id    BIGINT REFERENCES depots(id),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS drivers (
    id             BIGSERIAL PRIMARY KEY,
    name           TEXT NOT NULL,
    phone          TEXT NOT NULL DEFAULT '',
    license_number TEXT NOT NULL DEFAULT '',
    active         BOOLEAN NOT NULL DEFAULT TRUE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS vehicles (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL,
    plate       TEXT NOT NULL DEFAULT '',
    capacity    INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS products (
    id            BIGSERIAL PRIMARY KEY,
    code          TEXT NOT NULL UNIQUE,
    product_type  TEXT NOT NULL DEFAULT 'cylinder',
    unit_code     TEXT NOT NULL DEFAULT '',
    label         TEXT NOT NULL DEFAULT '',
    price         NUMERIC(12,2) NOT NULL DEFAULT 0,
    real_capacity DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS product_instances (
    id                   BIGSERIAL PRIMARY KEY,
    product_id           BIGINT NOT NULL REFERENCES products(id),
    serial_number        TEXT NOT NULL UNIQUE,
    barcode              TEXT NOT NULL DEFAULT '',
    ownership            TEXT NOT NULL DEFAULT 'company',
    valve_type           TEXT NOT NULL DEFAULT '',
    manufacturer         TEXT NOT NULL DEFAULT '',
    manufacture_date     DATE,
    expiration_date      DATE,
    last_test_date       DATE,
    state                TEXT NOT NULL DEFAULT 'active',
    status               TEXT NOT NULL DEFAULT 'active',
    location_category    TEXT NOT NULL DEFAULT '',
    location_id          BIGINT,
    last_inspection_date DATE,
    next_inspection_date DATE,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_instances_product ON product_instances(product_id);

CREATE TABLE IF NOT EXISTS orders (
    id            BIGSERIAL PRIMARY KEY,
    order_number  TEXT NOT NULL UNIQUE,
    customer_id   BIGINT NOT NULL REFERENCES customers(id),
    address_id    BIGINT REFERENCES customer_addresses(id) ON DELETE SET NULL,
    order_date    DATE NOT NULL,
    delivery_date DATE,
    status        TEXT NOT NULL DEFAULT 'pending',
    total_amount  NUMERIC(12,2) NOT NULL DEFAULT 0,
    comments      TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);

CREATE TABLE IF NOT EXISTS order_details (
    id          BIGSERIAL PRIMARY KEY,
    order_id    BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    product_id  BIGINT NOT NULL REFERENCES products(id),
    quantity    INTEGER NOT NULL DEFAULT 1,
    unit_price  NUMERIC(12,2) NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_order_details_order ON order_details(order_id);

CREATE TABLE IF NOT EXISTS delivery_routes (
    id           BIGSERIAL PRIMARY KEY,
    route_number TEXT NOT NULL UNIQUE,
    route_date   DATE NOT NULL,
    vehicle_id   BIGINT NOT NULL REFERENCES vehicles(id),
    driver_id    BIGINT NOT NULL REFERENCES drivers(id),
    start_time   TEXT NOT NULL DEFAULT '',
    end_time     TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'planned',
    comments     TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS route_stops (
    id              BIGSERIAL PRIMARY KEY,
    route_id        BIGINT NOT NULL REFERENCES delivery_routes(id) ON DELETE CASCADE,
    order_id        BIGINT NOT NULL REFERENCES orders(id),
    stop_order      INTEGER NOT NULL,
    planned_arrival TEXT NOT NULL DEFAULT '',
    actual_arrival  TEXT,
    status          TEXT NOT NULL DEFAULT 'pending',
    comments        TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_route_stops_order ON route_stops(route_id, order_id);

CREATE TABLE IF NOT EXISTS movements (
    id               BIGSERIAL PRIMARY KEY,
    instance_id      BIGINT NOT NULL REFERENCES product_instances(id),
    movement_type    TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'pending',
    source_kind      TEXT NOT NULL DEFAULT '',
    source_id        BIGINT,
    destination_kind TEXT NOT NULL,
    destination_id   BIGINT NOT NULL,
    route_id         BIGINT REFERENCES delivery_routes(id) ON DELETE SET NULL,
    order_id         BIGINT REFERENCES orders(id) ON DELETE SET NULL,
    movement_date    TIMESTAMPTZ NOT NULL,
    comments         TEXT NOT NULL DEFAULT '',
    created_by       TEXT NOT NULL DEFAULT 'system',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_movements_latest ON movements(instance_id, movement_date DESC, id DESC);

CREATE TABLE IF NOT EXISTS maintenances (
    id                    BIGSERIAL PRIMARY KEY,
    instance_id           BIGINT NOT NULL REFERENCES product_instances(id),
    maintenance_type      TEXT NOT NULL,
    status                TEXT NOT NULL DEFAULT 'planned',
    planned_date          DATE NOT NULL,
    actual_date           DATE,
    result                TEXT NOT NULL DEFAULT '',
    cost                  NUMERIC(12,2),
    next_maintenance_date DATE,
    certificate_number    TEXT NOT NULL DEFAULT '',
    performed_by          TEXT NOT NULL DEFAULT '',
    destination_depot_id  BIGINT REFERENCES depots(id),
    comments              TEXT NOT NULL DEFAULT '',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_maintenances_instance ON maintenances(instance_id);
CREATE INDEX IF NOT EXISTS idx_maintenances_status ON maintenances(status);

CREATE TABLE IF NOT EXISTS inventory (
    id              BIGSERIAL PRIMARY KEY,
    depot_id        BIGINT NOT NULL REFERENCES depots(id),
    product_id      BIGINT NOT NULL REFERENCES products(id),
    quantity        INTEGER NOT NULL DEFAULT 0,
    last_updated    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_updated_by TEXT NOT NULL DEFAULT 'system',
    UNIQUE(depot_id, product_id)
);

CREATE TABLE IF NOT EXISTS inventory_adjustments (
    id           BIGSERIAL PRIMARY KEY,
    depot_id     BIGINT NOT NULL REFERENCES depots(id),
    product_id   BIGINT NOT NULL REFERENCES products(id),
    old_quantity INTEGER NOT NULL DEFAULT 0,
    new_quantity INTEGER NOT NULL DEFAULT 0,
    reason       TEXT NOT NULL DEFAULT '',
    actor        TEXT NOT NULL DEFAULT 'system',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS stock_alerts (
    id          BIGSERIAL PRIMARY KEY,
    product_id  BIGINT NOT NULL UNIQUE REFERENCES products(id),
    threshold   INTEGER NOT NULL,
    active      BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS inventory_orders (
    id           BIGSERIAL PRIMARY KEY,
    reference    TEXT NOT NULL UNIQUE,
    depot_id     BIGINT NOT NULL REFERENCES depots(id),
    status       TEXT NOT NULL DEFAULT 'pending',
    planned_date DATE NOT NULL,
    started_at   TIMESTAMPTZ,
    completed_at TIMESTAMPTZ,
    comments     TEXT NOT NULL DEFAULT '',
    created_by   TEXT NOT NULL DEFAULT 'system',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS inventory_order_lines (
    id                 BIGSERIAL PRIMARY KEY,
    inventory_order_id BIGINT NOT NULL REFERENCES inventory_orders(id) ON DELETE CASCADE,
    product_id         BIGINT NOT NULL REFERENCES products(id),
    expected_quantity  INTEGER NOT NULL DEFAULT 0,
    counted_quantity   INTEGER,
    difference         INTEGER
);

CREATE TABLE IF NOT EXISTS deposit_rates (
    id          BIGSERIAL PRIMARY KEY,
    product_id  BIGINT NOT NULL UNIQUE REFERENCES products(id),
    amount      NUMERIC(12,2) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS customer_deposits (
    id             BIGSERIAL PRIMARY KEY,
    customer_id    BIGINT NOT NULL REFERENCES customers(id),
    product_id     BIGINT NOT NULL REFERENCES products(id),
    order_id       BIGINT REFERENCES orders(id) ON DELETE SET NULL,
    employee_id    BIGINT REFERENCES employees(id) ON DELETE SET NULL,
    amount         NUMERIC(12,2) NOT NULL DEFAULT 0,
    paid           BOOLEAN NOT NULL DEFAULT FALSE,
    payment_method TEXT NOT NULL DEFAULT '',
    deposit_date   DATE NOT NULL,
    status         TEXT NOT NULL DEFAULT 'active',
    comments       TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_deposits_customer ON customer_deposits(customer_id);

CREATE TABLE IF NOT EXISTS documents (
    id             BIGSERIAL PRIMARY KEY,
    number         TEXT NOT NULL UNIQUE,
    doc_type       TEXT NOT NULL,
    doc_date       DATE NOT NULL,
    order_id       BIGINT REFERENCES orders(id) ON DELETE SET NULL,
    deposit_id     BIGINT REFERENCES customer_deposits(id) ON DELETE SET NULL,
    customer_id    BIGINT NOT NULL REFERENCES customers(id),
    total_amount   NUMERIC(12,2) NOT NULL DEFAULT 0,
    payment_status TEXT NOT NULL DEFAULT 'unpaid',
    payment_date   DATE,
    payment_method TEXT NOT NULL DEFAULT '',
    comments       TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_documents_customer ON documents(customer_id);

CREATE TABLE IF NOT EXISTS outbox (
    id          BIGSERIAL PRIMARY KEY,
    topic       TEXT NOT NULL,
    payload     BYTEA NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    sent_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGSERIAL PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id   INTEGER NOT NULL DEFAULT 0,
    action      TEXT NOT NULL,
    old_value   TEXT NOT NULL DEFAULT '',
    new_value   TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT 'system',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS admin_users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
